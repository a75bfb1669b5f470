package commands

import (
	"social-signals/lib/sources/wikipedia"
	"social-signals/lib/table"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchTitles       int
	relatedPages       int
	showDisambiguation bool
)

func init() {
	wikipediaSearchCmd.Flags().IntVarP(&searchTitles, "results", "n", wikipedia.DefaultSearchResults, "The number of titles to return.")
	wikipediaRelatedCmd.Flags().IntVarP(&relatedPages, "results", "n", 10, "The number of related pages to fetch.")
	wikipediaPageCmd.Flags().BoolVar(&showDisambiguation, "show-disambiguation", true, "List the pages an ambiguous title may refer to.")

	wikipediaCmd.AddCommand(wikipediaSearchCmd, wikipediaPageCmd, wikipediaRelatedCmd)
	rootCmd.AddCommand(wikipediaCmd)
}

func wikipediaSource() wikipedia.Source {
	return wikipedia.NewSource(wikipedia.Options{
		Lang:             cfg.Wikipedia.Lang,
		DisableRateLimit: cfg.Wikipedia.DisableRateLimit,
		MinWait:          time.Duration(cfg.Wikipedia.MinWaitMs) * time.Millisecond,
		APIURL:           cfg.Wikipedia.APIURL,
		Output:           httpOutput("wikipedia"),
	}, tel)
}

var wikipediaCmd = &cobra.Command{
	Use:   "wikipedia",
	Short: "Search and fetch Wikipedia articles.",
}

var titlesSchema = table.NewSchema(table.Field{Name: "title", Kind: table.String})

var wikipediaSearchCmd = &cobra.Command{
	Use:   "search <term> [-n <results>]",
	Short: "Lists the titles of the pages matching a term.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		titles, err := wikipediaSource().Search(cmd.Context(), strings.Join(args, " "), searchTitles)
		if err != nil {
			return err
		}
		out := table.New(titlesSchema)
		for _, title := range titles {
			err := out.Append(table.Row{"title": title})
			if err != nil {
				return err
			}
		}
		return render(cmd, out)
	},
}

var wikipediaPageCmd = &cobra.Command{
	Use:   "page <title>...",
	Short: "Fetches pages by title, ambiguous titles are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetchPages(cmd, wikipediaSource(), args)
	},
}

// fetchPages renders every page that could be fetched, skipping all titles still renders
// the empty table.
func fetchPages(cmd *cobra.Command, source wikipedia.Source, titles []string) error {
	pages, err := source.FetchPages(cmd.Context(), titles, showDisambiguation)
	if err != nil {
		return err
	}
	return render(cmd, pages)
}

var wikipediaRelatedCmd = &cobra.Command{
	Use:   "related <term> [-n <results>]",
	Short: "Searches for a term and fetches every page found.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, err := wikipediaSource().FetchRelatedPages(cmd.Context(), strings.Join(args, " "), relatedPages)
		if err != nil {
			return err
		}
		return render(cmd, pages)
	},
}
