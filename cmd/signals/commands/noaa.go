package commands

import (
	"social-signals/lib/sources/noaa"

	"github.com/spf13/cobra"
)

var (
	stationsDataset string
	dataRequest     noaa.DataRequest
)

func init() {
	noaaStationsCmd.Flags().StringVar(&stationsDataset, "dataset", noaa.DefaultStationsDataset, "The dataset to list the stations of.")

	flags := noaaDataCmd.Flags()
	flags.StringVar(&dataRequest.Dataset, "dataset", noaa.DefaultDataDataset, "The dataset to fetch observations from.")
	flags.StringVar(&dataRequest.StartDate, "start", noaa.DefaultStartDate, "The first day to fetch as YYYY-MM-DD.")
	flags.StringVar(&dataRequest.EndDate, "end", noaa.DefaultEndDate, "The last day to fetch as YYYY-MM-DD.")

	noaaCmd.AddCommand(noaaStationsCmd, noaaDataCmd)
	rootCmd.AddCommand(noaaCmd)
}

func noaaSource() noaa.Source {
	return noaa.NewSource(noaa.Options{
		Token:   cfg.NOAA.Token,
		BaseURL: cfg.NOAA.BaseURL,
		DataURL: cfg.NOAA.DataURL,
		Output:  httpOutput("noaa"),
	}, tel)
}

var noaaCmd = &cobra.Command{
	Use:   "noaa",
	Short: "Fetch weather stations and observations from NOAA NCEI.",
}

var noaaStationsCmd = &cobra.Command{
	Use:   "stations [--dataset <id>]",
	Short: "Lists every station of a dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		stations, err := noaaSource().GetStations(cmd.Context(), stationsDataset)
		if err != nil {
			return err
		}
		return render(cmd, stations)
	},
}

var noaaDataCmd = &cobra.Command{
	Use:   "data <station>... [--start YYYY-MM-DD] [--end YYYY-MM-DD]",
	Short: "Fetches the monthly summaries of the given stations.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dataRequest
		for _, id := range args {
			req.Stations = append(req.Stations, noaa.TrimStationPrefix(id))
		}
		data, err := noaaSource().GetStationsData(cmd.Context(), req)
		if err != nil {
			return err
		}
		return render(cmd, data)
	},
}
