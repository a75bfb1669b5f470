package commands

import (
	"fmt"
	"social-signals/lib/sources/x"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchStart   string
	searchResults int
)

func init() {
	flags := xSearchCmd.Flags()
	flags.StringVar(&searchStart, "start", "", "The oldest post to return as an RFC 3339 timestamp (defaults to yesterday at midnight UTC).")
	flags.IntVarP(&searchResults, "results", "n", x.DefaultMaxResults, "The number of posts to return.")

	xCmd.AddCommand(xSearchCmd)
	rootCmd.AddCommand(xCmd)
}

var xCmd = &cobra.Command{
	Use:   "x",
	Short: "Search recent posts on X.",
}

var xSearchCmd = &cobra.Command{
	Use:   "search <query> [--start <time>] [-n <results>]",
	Short: "Searches posts of the last 7 days and joins them with their authors.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := x.SearchRequest{
			Query:      strings.Join(args, " "),
			MaxResults: searchResults,
		}
		if searchStart != "" {
			start, err := time.Parse(time.RFC3339, searchStart)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			req.StartTime = start
		}

		source := x.NewSource(x.Options{
			BearerToken: cfg.X.BearerToken,
			BaseURL:     cfg.X.BaseURL,
			Output:      httpOutput("x"),
		}, tel, clock)
		posts, err := source.Search(cmd.Context(), req)
		if err != nil {
			return err
		}
		return render(cmd, posts)
	},
}
