package commands

import (
	"fmt"
	"social-signals/lib/serviceutil"
	"social-signals/lib/sources/gdelt"
	"time"

	"github.com/spf13/cobra"
)

var articlesQuery gdelt.ArticlesQuery
var articlesDate string

func init() {
	for _, cmd := range []*cobra.Command{gdeltArticlesCmd, gdeltEstimateCmd} {
		flags := cmd.Flags()
		flags.StringVar(&articlesQuery.Database, "database", gdelt.DefaultDatabase, "The BigQuery project holding the GDELT dataset.")
		flags.StringVar(&articlesQuery.Dataset, "dataset", gdelt.DefaultDataset, "The GDELT dataset.")
		flags.StringVar(&articlesDate, "date", "", "The day articles were published on as YYYYMMDD (defaults to today).")
		flags.StringVar(&articlesQuery.PrimaryLocationIncludes, "location", gdelt.DefaultPrimaryLocationIncludes, "A country, state or city the primary location must include.")
		flags.StringVar(&articlesQuery.Theme, "theme", gdelt.DefaultTheme, "A GKG theme one of the first ten themes must include.")
		flags.Float64Var(&articlesQuery.DataLimitGB, "data-limit-gb", 0, "The most data the query may process (defaults to the config's limit).")
	}
	gdeltCmd.AddCommand(gdeltArticlesCmd, gdeltEstimateCmd)
	rootCmd.AddCommand(gdeltCmd)
}

func gdeltSource(cmd *cobra.Command) (gdelt.Source, func()) {
	backend, err := gdelt.NewBigQuery(cmd.Context(), gdelt.BigQueryOptions{
		CredentialsPath: cfg.GDELT.CredentialsPath,
		ProjectID:       cfg.GDELT.ProjectID,
	}, tel)
	if err != nil {
		serviceutil.Fatal("failed to initialize bigquery", err)
	}
	return gdelt.NewSource(backend, tel, clock), func() { backend.Close() }
}

func parseArticlesQuery() (gdelt.ArticlesQuery, error) {
	q := articlesQuery
	if q.DataLimitGB == 0 {
		q.DataLimitGB = cfg.GDELT.DataLimitGB
	}
	if articlesDate != "" {
		date, err := time.Parse("20060102", articlesDate)
		if err != nil {
			return q, fmt.Errorf("invalid --date: %w", err)
		}
		q.Date = date
	}
	return q, nil
}

var gdeltCmd = &cobra.Command{
	Use:   "gdelt",
	Short: "Query articles of the GDELT Global Knowledge Graph on BigQuery.",
}

var gdeltArticlesCmd = &cobra.Command{
	Use:   "articles [--date YYYYMMDD] [--location <name>] [--theme <theme>]",
	Short: "Fetches the GKG articles of a day, refusing queries that process more than the data limit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := parseArticlesQuery()
		if err != nil {
			return err
		}
		source, closeBackend := gdeltSource(cmd)
		defer closeBackend()

		articles, err := source.GetGKGArticles(cmd.Context(), q)
		if err != nil {
			return err
		}
		return render(cmd, articles)
	},
}

var gdeltEstimateCmd = &cobra.Command{
	Use:   "estimate [--date YYYYMMDD] [--location <name>] [--theme <theme>]",
	Short: "Prints how much data the articles query would process without running it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := parseArticlesQuery()
		if err != nil {
			return err
		}
		source, closeBackend := gdeltSource(cmd)
		defer closeBackend()

		estimate, err := source.EstimateGKGArticles(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.3f GB (%d bytes)\n", estimate.GB(), estimate.Bytes)
		return nil
	},
}
