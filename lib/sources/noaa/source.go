// Package noaa fetches weather stations and station observations from NOAA NCEI.
//
// API documentation: https://www.ncdc.noaa.gov/cdo-web/webservices/v2
package noaa

import (
	"context"
	"fmt"
	"social-signals/lib/assert"
	"social-signals/lib/paginate"
	"social-signals/lib/restyutil"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
	"social-signals/lib/transport"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://www.ncei.noaa.gov/cdo-web/api/v2"
	DefaultDataURL = "https://www.ncei.noaa.gov/access/services/data/v1"

	DefaultStationsDataset = "GSOM"
	DefaultDataDataset     = "global-summary-of-the-month"
	DefaultStartDate       = "0001-01-01"
	DefaultEndDate         = "9996-12-31"

	// StationsLimit is the maximum number of stations the listing returns per request.
	StationsLimit = 1000
	// SummaryStationsLimit is the maximum number of stations to request data for at once.
	SummaryStationsLimit = 50

	report_get_stations      = "source.get-stations"
	report_get_stations_data = "source.get-stations-data"
	report_decode            = "source.decode"
)

type Options struct {
	// Token is the CDO web services token (https://www.ncdc.noaa.gov/cdo-web/token).
	Token   string
	BaseURL string
	DataURL string
	Output  restyutil.InstrumentOutput
}

type Source struct {
	http    *resty.Client
	dataURL string
	tel     telemetry.API
}

func NewSource(opts Options, tel telemetry.API) Source {
	assert.NotNil(tel)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	dataURL := opts.DataURL
	if dataURL == "" {
		dataURL = DefaultDataURL
	}

	client := transport.NewClient(transport.Options{
		BaseURL:    baseURL,
		TracerName: "social-signals/noaa",
		Output:     opts.Output,
	})
	client.SetHeader("token", opts.Token)

	return Source{
		http:    client,
		dataURL: dataURL,
		tel:     telemetry.NewScopedAPI("noaa", tel),
	}
}

type station struct {
	Elevation     *float64 `json:"elevation"`
	MinDate       string   `json:"mindate"`
	MaxDate       string   `json:"maxdate"`
	Latitude      *float64 `json:"latitude"`
	Name          string   `json:"name"`
	DataCoverage  *float64 `json:"datacoverage"`
	ID            string   `json:"id"`
	ElevationUnit string   `json:"elevationUnit"`
	Longitude     *float64 `json:"longitude"`
}

func (s station) row() table.Row {
	row := table.Row{
		"mindate":       s.MinDate,
		"maxdate":       s.MaxDate,
		"name":          s.Name,
		"id":            s.ID,
		"elevationUnit": s.ElevationUnit,
	}
	// pointers keep missing numbers distinct from zero
	for name, v := range map[string]*float64{
		"elevation":    s.Elevation,
		"latitude":     s.Latitude,
		"datacoverage": s.DataCoverage,
		"longitude":    s.Longitude,
	} {
		if v != nil {
			row[name] = *v
		}
	}
	return row
}

type stationsResponse struct {
	Metadata struct {
		ResultSet struct {
			Offset int `json:"offset"`
			Count  int `json:"count"`
			Limit  int `json:"limit"`
		} `json:"resultset"`
	} `json:"metadata"`
	Results []station `json:"results"`
}

func (s Source) fetchStationsPage(ctx context.Context, dataset string, cursor paginate.Cursor) paginate.Page[station] {
	var parsed stationsResponse
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"datasetid": dataset,
			"limit":     strconv.Itoa(cursor.Limit),
			// the api counts from 1
			"offset": strconv.Itoa(cursor.Offset + 1),
		}).
		SetResult(&parsed).
		Get("/stations")
	err = transport.Check(res, err)
	if err != nil {
		return paginate.Failed[station](err)
	}
	return paginate.Ok(parsed.Results).WithTotal(parsed.Metadata.ResultSet.Count)
}

// GetStations lists every station of a dataset (GSOM when empty).
//
// The first page reports how many stations exist, the remaining pages are requested
// StationsLimit at a time. A page that fails is reported and skipped.
func (s Source) GetStations(ctx context.Context, dataset string) (*table.Table, error) {
	if dataset == "" {
		dataset = DefaultStationsDataset
	}

	stations, stats, err := paginate.Counted(
		ctx, StationsLimit,
		func(ctx context.Context, cursor paginate.Cursor) paginate.Page[station] {
			s.tel.ReportDebug("fetch stations page", dataset, cursor.Offset)
			return s.fetchStationsPage(ctx, dataset, cursor)
		},
	)
	if err != nil {
		s.tel.ReportBroken(report_get_stations, err, dataset)
		return nil, err
	}
	for _, failure := range stats.Failures {
		s.tel.ReportWarning(report_get_stations, failure, dataset)
	}

	out := table.New(StationSchema)
	for _, st := range stations {
		err := out.Append(st.row())
		if err != nil {
			s.tel.ReportBroken(report_decode, err, st.ID)
			return nil, err
		}
	}
	s.tel.ReportCount("source.stations", int64(out.Len()))
	return out, nil
}

// TrimStationPrefix removes the dataset prefix of a station id as returned by GetStations
// (ex. "GHCND:USW00023174" -> "USW00023174") so it can be passed to GetStationsData.
func TrimStationPrefix(id string) string {
	_, after, found := strings.Cut(id, ":")
	if !found {
		return id
	}
	return after
}

type DataRequest struct {
	// Dataset defaults to DefaultDataDataset.
	Dataset string
	// Stations are station ids without a dataset prefix.
	Stations []string
	// StartDate and EndDate are YYYY-MM-DD dates, they default to the widest range the api accepts.
	StartDate string
	EndDate   string
}

func (r DataRequest) withDefaults() DataRequest {
	if r.Dataset == "" {
		r.Dataset = DefaultDataDataset
	}
	if r.StartDate == "" {
		r.StartDate = DefaultStartDate
	}
	if r.EndDate == "" {
		r.EndDate = DefaultEndDate
	}
	return r
}

func (s Source) fetchDataBatch(ctx context.Context, req DataRequest, stations []string) paginate.Page[map[string]any] {
	var parsed []map[string]any
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset":   req.Dataset,
			"startDate": req.StartDate,
			"endDate":   req.EndDate,
			"format":    "json",
			"stations":  strings.Join(stations, ","),
		}).
		SetResult(&parsed).
		ForceContentType("application/json").
		Get(s.dataURL)
	err = transport.Check(res, err)
	if err != nil {
		return paginate.Failed[map[string]any](err)
	}
	return paginate.Ok(parsed)
}

// textValue renders a decoded json scalar the way the data endpoint usually reports it: as text.
func textValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}

// GetStationsData fetches the observations of the given stations, SummaryStationsLimit
// stations per request. A batch that fails is reported and skipped.
//
// Rows are projected onto SummarySchema, values outside of it are dropped.
func (s Source) GetStationsData(ctx context.Context, req DataRequest) (*table.Table, error) {
	req = req.withDefaults()

	records, stats, err := paginate.Batched(
		ctx, req.Stations, SummaryStationsLimit,
		func(ctx context.Context, batch []string) paginate.Page[map[string]any] {
			s.tel.ReportDebug("fetch stations data batch", req.Dataset, len(batch))
			return s.fetchDataBatch(ctx, req, batch)
		},
	)
	if err != nil {
		s.tel.ReportBroken(report_get_stations_data, err, req.Dataset)
		return nil, err
	}
	for _, failure := range stats.Failures {
		s.tel.ReportWarning(report_get_stations_data, failure, req.Dataset)
	}

	out := table.New(SummarySchema)
	droppedColumns := map[string]bool{}
	for _, record := range records {
		row, dropped := SummarySchema.Project(record)
		for _, d := range dropped {
			droppedColumns[d] = true
		}
		for k, v := range row {
			row[k] = textValue(v)
		}
		err := out.Append(row)
		if err != nil {
			s.tel.ReportBroken(report_decode, err)
			return nil, err
		}
	}
	if len(droppedColumns) > 0 {
		s.tel.ReportDebug("dropped columns outside of the summary schema", len(droppedColumns))
	}
	s.tel.ReportCount("source.observations", int64(out.Len()))
	return out, nil
}
