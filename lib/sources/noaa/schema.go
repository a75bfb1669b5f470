package noaa

import "social-signals/lib/table"

// StationSchema is the shape of the v2 stations listing.
var StationSchema = table.NewSchema(
	table.Field{Name: "elevation", Kind: table.Float},
	table.Field{Name: "mindate", Kind: table.String},
	table.Field{Name: "maxdate", Kind: table.String},
	table.Field{Name: "latitude", Kind: table.Float},
	table.Field{Name: "name", Kind: table.String},
	table.Field{Name: "datacoverage", Kind: table.Float},
	table.Field{Name: "id", Kind: table.String},
	table.Field{Name: "elevationUnit", Kind: table.String},
	table.Field{Name: "longitude", Kind: table.Float},
)

// SummaryColumns are the columns of the global summary of the month (GSOM) dataset,
// see https://www.ncei.noaa.gov/data/global-summary-of-the-month/doc/GSOMReadme-v1.0.3.txt
var SummaryColumns = []string{
	"EMXP", "EMXT", "DYSD", "PRCP", "DP10", "DX90", "DX70", "EMNT",
	"DT32", "DYSN", "DX32", "TMAX", "EMSD", "STATION", "EMSN", "DSND",
	"SNOW", "CDSD", "DP01", "DYXP", "HTDD", "DT00", "DATE", "DYXT",
	"DP1X", "CLDD", "DSNW", "TAVG", "TMIN", "DYNT", "DYTS", "HDSD",
}

// SummarySchema holds the values of the data endpoint, which are all reported as text.
var SummarySchema = newSummarySchema()

func newSummarySchema() table.Schema {
	fields := make([]table.Field, len(SummaryColumns))
	for i, c := range SummaryColumns {
		fields[i] = table.Field{Name: c, Kind: table.String}
	}
	return table.NewSchema(fields...)
}
