package gdelt

import (
	"errors"
	"fmt"
	"regexp"
	"social-signals/lib/budget"
	"social-signals/lib/table"
	"time"
)

const (
	DefaultDatabase                = "gdelt-bq"
	DefaultDataset                 = "gdeltv2"
	DefaultPrimaryLocationIncludes = "united states"
	// DefaultTheme, see http://data.gdeltproject.org/api/v2/guides/LOOKUP-GKGTHEMES.TXT for
	// every theme.
	DefaultTheme = "protest"

	partitionDateLayout = "20060102"
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var ArticleSchema = table.NewSchema(
	table.Field{Name: "gdelt_gkg_article_id", Kind: table.String},
	table.Field{Name: "article_url", Kind: table.String},
	table.Field{Name: "themes", Kind: table.String},
	table.Field{Name: "locations", Kind: table.String},
	table.Field{Name: "primary_location", Kind: table.String},
	table.Field{Name: "persons", Kind: table.String},
	table.Field{Name: "organizations", Kind: table.String},
	table.Field{Name: "social_image_url", Kind: table.String},
	table.Field{Name: "social_video_url", Kind: table.String},
	table.Field{Name: "creation_ts", Kind: table.Time},
	table.Field{Name: "bq_partition_id", Kind: table.Time},
)

// ArticlesQuery selects the GKG articles of a single day whose primary location and one of
// whose first ten themes contain the given fragments.
type ArticlesQuery struct {
	Database string
	Dataset  string
	// Date is the day the articles were published, only its date part (in UTC) is used.
	Date time.Time
	// PrimaryLocationIncludes is a country, state or city name, matched case-insensitively.
	PrimaryLocationIncludes string
	Theme                   string
	DataLimitGB             float64
}

func (q ArticlesQuery) withDefaults(today time.Time) ArticlesQuery {
	if q.Database == "" {
		q.Database = DefaultDatabase
	}
	if q.Dataset == "" {
		q.Dataset = DefaultDataset
	}
	if q.Date.IsZero() {
		q.Date = today
	}
	if q.PrimaryLocationIncludes == "" {
		q.PrimaryLocationIncludes = DefaultPrimaryLocationIncludes
	}
	if q.Theme == "" {
		q.Theme = DefaultTheme
	}
	return q
}

// locations are ranked by geo type: US state, world state, country, US city, world city
const articlesSQL = "" +
	"with s_articles as (\n" +
	"  select\n" +
	"    GKGRECORDID as gdelt_gkg_article_id,\n" +
	"    DocumentIdentifier as article_url,\n" +
	"    SourceCollectionIdentifier as source_collection_id,\n" +
	"    lower(Themes) as themes,\n" +
	"    lower(Locations) as locations,\n" +
	"    lower(Persons) as persons,\n" +
	"    lower(Organizations) as organizations,\n" +
	"    SocialImageEmbeds as social_image_url,\n" +
	"    SocialVideoEmbeds as social_video_url,\n" +
	"    parse_timestamp('%%Y%%m%%d%%H%%M%%S', cast(`DATE` as string)) as creation_ts,\n" +
	"    _PARTITIONTIME as bq_partition_id\n" +
	"  from `%s.%s.gkg_partitioned`\n" +
	"  where _PARTITIONTIME = parse_timestamp('%%Y%%m%%d%%H%%M%%S', concat(@articles_date, '000000'))\n" +
	"),\n" +
	"filter_source_collections as (\n" +
	"  select * from s_articles\n" +
	"  where source_collection_id = 1\n" +
	"),\n" +
	"primary_locations as (\n" +
	"  select\n" +
	"    gdelt_gkg_article_id,\n" +
	"    article_url,\n" +
	"    themes,\n" +
	"    locations,\n" +
	"    (\n" +
	"      select split_location\n" +
	"      from unnest(split(locations, ';')) as split_location\n" +
	"      order by\n" +
	"        case substr(split_location, 1, 1)\n" +
	"        when '3' then 1\n" +
	"        when '4' then 2\n" +
	"        when '2' then 3\n" +
	"        when '5' then 4\n" +
	"        when '1' then 5\n" +
	"        else 6\n" +
	"        end\n" +
	"      limit 1\n" +
	"    ) as primary_location,\n" +
	"    persons,\n" +
	"    organizations,\n" +
	"    social_image_url,\n" +
	"    social_video_url,\n" +
	"    creation_ts,\n" +
	"    bq_partition_id\n" +
	"  from filter_source_collections\n" +
	"),\n" +
	"filter_locations as (\n" +
	"  select * from primary_locations\n" +
	"  where primary_location like concat('%%', lower(@location), '%%')\n" +
	"),\n" +
	"filter_themes as (\n" +
	"  select * from filter_locations\n" +
	"  where (\n" +
	"    select true\n" +
	"    from unnest(split(themes, ';')) theme with offset\n" +
	"    where offset < 10\n" +
	"    and theme like concat('%%', lower(@theme), '%%')\n" +
	"    limit 1\n" +
	"  ) is not null\n" +
	")\n" +
	"select *\n" +
	"from filter_themes\n" +
	"order by gdelt_gkg_article_id\n"

// BuildArticlesQuery renders the GKG query. User supplied values are bound as parameters,
// only the database and dataset names (which cannot be bound) are part of the text and must
// be plain identifiers.
func BuildArticlesQuery(q ArticlesQuery) (budget.Query, error) {
	for _, id := range []string{q.Database, q.Dataset} {
		if !identifierPattern.MatchString(id) {
			return budget.Query{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	return budget.Query{
		SQL: fmt.Sprintf(articlesSQL, q.Database, q.Dataset),
		Params: []budget.Param{
			{Name: "articles_date", Value: q.Date.UTC().Format(partitionDateLayout)},
			{Name: "location", Value: q.PrimaryLocationIncludes},
			{Name: "theme", Value: q.Theme},
		},
	}, nil
}
