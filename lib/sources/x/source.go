// Package x fetches recent posts from the X (formerly Twitter) API v2 search endpoint.
package x

import (
	"context"
	"fmt"
	"social-signals/lib/assert"
	"social-signals/lib/chrono"
	"social-signals/lib/paginate"
	"social-signals/lib/restyutil"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
	"social-signals/lib/transport"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.twitter.com"
	searchPath     = "/2/tweets/search/recent"

	DefaultMaxResults = 10
	// the endpoint rejects max_results outside of this range
	minPageResults = 10
	maxPageResults = 100

	tweetFields = "created_at,author_id,text,public_metrics"
	userFields  = "id,name,username,description,created_at,public_metrics"

	report_search        = "source.search"
	report_recent_search = "source.recent-search"
)

var PostSchema = table.NewSchema(
	table.Field{Name: "tweet_id", Kind: table.String},
	table.Field{Name: "tweet_created_at", Kind: table.Time},
	table.Field{Name: "tweet_text", Kind: table.String},
	table.Field{Name: "tweet_public_metrics", Kind: table.Object},
	table.Field{Name: "author_id", Kind: table.String},
	table.Field{Name: "author_name", Kind: table.String},
	table.Field{Name: "author_username", Kind: table.String},
	table.Field{Name: "author_description", Kind: table.String},
	table.Field{Name: "author_created_at", Kind: table.Time},
	table.Field{Name: "author_public_metrics", Kind: table.Object},
)

type Options struct {
	BearerToken string
	BaseURL     string
	Output      restyutil.InstrumentOutput
}

type Source struct {
	http *resty.Client
	time chrono.TimeAPI
	tel  telemetry.API
}

func NewSource(opts Options, tel telemetry.API, clock chrono.TimeAPI) Source {
	assert.NotNil(tel)
	assert.NotNil(clock)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := transport.NewClient(transport.Options{
		BaseURL:    baseURL,
		TracerName: "social-signals/x",
		Output:     opts.Output,
	})
	client.SetAuthToken(opts.BearerToken)

	return Source{
		http: client,
		time: clock,
		tel:  telemetry.NewScopedAPI("x", tel),
	}
}

type SearchRequest struct {
	// Query uses the X search query syntax, ex. `#protest -is:retweet lang:en`.
	Query string
	// StartTime defaults to yesterday at midnight UTC.
	StartTime time.Time
	// MaxResults is the number of posts to collect, it defaults to DefaultMaxResults.
	MaxResults int
}

type PublicMetrics map[string]any

type Post struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author_id"`
	CreatedAt     time.Time     `json:"created_at"`
	Text          string        `json:"text"`
	PublicMetrics PublicMetrics `json:"public_metrics"`
}

type User struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Username      string        `json:"username"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"created_at"`
	PublicMetrics PublicMetrics `json:"public_metrics"`
}

type SearchMeta struct {
	NewestID    string `json:"newest_id"`
	OldestID    string `json:"oldest_id"`
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

// SearchResponse is a single page of the recent search endpoint.
type SearchResponse struct {
	Data     []Post `json:"data"`
	Includes struct {
		Users []User `json:"users"`
	} `json:"includes"`
	Meta SearchMeta `json:"meta"`
}

func (s Source) startTime(req SearchRequest) time.Time {
	if req.StartTime.IsZero() {
		return chrono.Yesterday(s.time)
	}
	return req.StartTime
}

func pageResults(n int) int {
	return max(minPageResults, min(n, maxPageResults))
}

// RecentSearch requests a single page of at most `pageSize` posts (clamped to the
// range the endpoint accepts), continuing from nextToken when it is not empty.
func (s Source) RecentSearch(ctx context.Context, req SearchRequest, pageSize int, nextToken string) (SearchResponse, error) {
	pageSize = pageResults(pageSize)

	params := map[string]string{
		"query":        req.Query,
		"start_time":   s.startTime(req).UTC().Format(time.RFC3339),
		"max_results":  strconv.Itoa(pageSize),
		"tweet.fields": tweetFields,
		"expansions":   "author_id",
		"user.fields":  userFields,
	}
	if nextToken != "" {
		params["next_token"] = nextToken
	}

	var parsed SearchResponse
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&parsed).
		Get(searchPath)
	err = transport.Check(res, err)
	if err != nil {
		s.tel.ReportBroken(report_recent_search, err, req.Query)
		return SearchResponse{}, err
	}
	return parsed, nil
}

// Search collects up to req.MaxResults recent posts following the endpoint's next_token
// and joins every post with its author.
func (s Source) Search(ctx context.Context, req SearchRequest) (*table.Table, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	users := map[string]User{}
	posts, stats, err := paginate.Tokens(
		ctx, limit,
		func(ctx context.Context, token string, remaining int) paginate.Page[Post] {
			res, err := s.RecentSearch(ctx, req, remaining, token)
			if err != nil {
				return paginate.Failed[Post](err)
			}
			for _, u := range res.Includes.Users {
				users[u.ID] = u
			}
			page := paginate.Ok(res.Data)
			// one page covers any limit up to maxPageResults, a short page is the last one
			if limit <= maxPageResults || len(res.Data) < pageResults(remaining) {
				return page
			}
			return page.WithNext(res.Meta.NextToken)
		},
	)
	if err != nil {
		s.tel.ReportBroken(report_search, err, req.Query, stats.Calls)
		return nil, err
	}

	out := table.New(PostSchema)
	for _, p := range posts {
		err := out.Append(joinAuthor(p, users))
		if err != nil {
			s.tel.ReportBroken(report_search, err, p.ID)
			return nil, err
		}
	}
	s.tel.ReportCount("source.posts", int64(out.Len()))
	return out, nil
}

func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func objectOrNil(m PublicMetrics) any {
	if m == nil {
		return nil
	}
	return map[string]any(m)
}

// joinAuthor flattens a post and its author into a row, author columns stay empty when
// the author was not part of the response's includes.
func joinAuthor(p Post, users map[string]User) table.Row {
	row := table.Row{
		"tweet_id":             p.ID,
		"tweet_created_at":     timeOrNil(p.CreatedAt),
		"tweet_text":           p.Text,
		"tweet_public_metrics": objectOrNil(p.PublicMetrics),
		"author_id":            p.AuthorID,
	}
	author, ok := users[p.AuthorID]
	if !ok {
		return row
	}
	row["author_name"] = author.Name
	row["author_username"] = author.Username
	row["author_description"] = author.Description
	row["author_created_at"] = timeOrNil(author.CreatedAt)
	row["author_public_metrics"] = objectOrNil(author.PublicMetrics)
	return row
}
