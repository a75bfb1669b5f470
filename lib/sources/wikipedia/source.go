// Package wikipedia searches and fetches encyclopedia articles through the MediaWiki action api.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"social-signals/lib/assert"
	"social-signals/lib/htmlutil"
	"social-signals/lib/restyutil"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
	"social-signals/lib/transport"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultLang    = "en"
	DefaultMinWait = 50 * time.Millisecond
	// DefaultSearchResults is the number of titles Search returns when n is not positive.
	DefaultSearchResults = 100

	report_search      = "source.search"
	report_fetch_pages = "source.fetch-pages"
	report_ambiguous   = "source.ambiguous-title"
)

var PageSchema = table.NewSchema(
	table.Field{Name: "pageid", Kind: table.Int},
	table.Field{Name: "title", Kind: table.String},
	table.Field{Name: "url", Kind: table.String},
	table.Field{Name: "categories", Kind: table.List},
	table.Field{Name: "links", Kind: table.List},
	table.Field{Name: "references", Kind: table.List},
	table.Field{Name: "content", Kind: table.String},
)

type Options struct {
	// Lang is the language edition, ex. "en" or "de".
	Lang string
	// DisableRateLimit removes the wait between consecutive requests.
	DisableRateLimit bool
	// MinWait is the minimum delay between two requests, it defaults to DefaultMinWait.
	MinWait time.Duration
	// APIURL overrides the api endpoint derived from Lang.
	APIURL string
	Output restyutil.InstrumentOutput
}

type Source struct {
	http   *resty.Client
	apiURL string
	tel    telemetry.API
}

func NewSource(opts Options, tel telemetry.API) Source {
	assert.NotNil(tel)

	lang := opts.Lang
	if lang == "" {
		lang = DefaultLang
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	var minInterval time.Duration
	if !opts.DisableRateLimit {
		minInterval = opts.MinWait
		if minInterval <= 0 {
			minInterval = DefaultMinWait
		}
	}

	return Source{
		http: transport.NewClient(transport.Options{
			MinInterval: minInterval,
			TracerName:  "social-signals/wikipedia",
			Output:      opts.Output,
		}),
		apiURL: apiURL,
		tel:    telemetry.NewScopedAPI("wikipedia", tel),
	}
}

// Suggest returns the spelling correction the api proposes for term, empty if there is none.
func (s Source) Suggest(ctx context.Context, term string) (string, error) {
	res, err := s.call(ctx, map[string]string{
		"action":   "query",
		"list":     "search",
		"srsearch": term,
		"srinfo":   "suggestion",
		"srprop":   "",
		"srlimit":  "1",
	}, nil)
	if err != nil {
		return "", err
	}
	return res.Query.SearchInfo.Suggestion, nil
}

// Search returns the titles of at most n pages matching term (DefaultSearchResults when n is
// not positive).
//
// When the first title is the term itself it is dropped, such a page is usually a
// disambiguation page. No results at all is not an error, a warning carrying the api's
// suggestion is reported instead.
func (s Source) Search(ctx context.Context, term string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultSearchResults
	}

	titles, err := collect(
		ctx, s, n,
		func(remaining int) map[string]string {
			return map[string]string{
				"action":   "query",
				"list":     "search",
				"srsearch": term,
				"srprop":   "",
				"srlimit":  strconv.Itoa(min(remaining, maxPerRequest)),
			}
		},
		func(res queryResponse) []string {
			out := make([]string, len(res.Query.Search))
			for i, result := range res.Query.Search {
				out[i] = result.Title
			}
			return out
		},
	)
	if err != nil {
		s.tel.ReportBroken(report_search, err, term)
		return nil, err
	}

	if len(titles) == 0 {
		suggestion, err := s.Suggest(ctx, term)
		if err != nil {
			s.tel.ReportWarning(report_search, err, term)
		}
		s.tel.ReportWarning(report_search, fmt.Sprintf("0 search results found. Did you mean %q?", suggestion), term)
		return []string{}, nil
	}
	if strings.EqualFold(titles[0], term) {
		titles = titles[1:]
	}
	return titles, nil
}

type Page struct {
	PageID     int64
	Title      string
	URL        string
	Categories []string
	Links      []string
	// References are the external links of the page.
	References []string
	Content    string
}

func (p Page) row() table.Row {
	return table.Row{
		"pageid":     p.PageID,
		"title":      p.Title,
		"url":        p.URL,
		"categories": p.Categories,
		"links":      p.Links,
		"references": p.References,
		"content":    p.Content,
	}
}

func (s Source) resolve(ctx context.Context, title string) (apiPage, error) {
	res, err := s.call(ctx, map[string]string{
		"action":    "query",
		"titles":    title,
		"redirects": "1",
		"prop":      "info|pageprops",
		"inprop":    "url",
		"ppprop":    "disambiguation",
	}, nil)
	if err != nil {
		return apiPage{}, err
	}
	if len(res.Query.Pages) == 0 {
		return apiPage{}, &NotFoundError{Title: title}
	}
	page := res.Query.Pages[0]
	if page.Missing || page.Invalid {
		return apiPage{}, &NotFoundError{Title: title}
	}
	return page, nil
}

func (s Source) disambiguationOptions(ctx context.Context, pageID int64) ([]string, error) {
	res, err := s.call(ctx, map[string]string{
		"action": "parse",
		"pageid": strconv.FormatInt(pageID, 10),
		"prop":   "text",
	}, nil)
	if err != nil {
		return nil, err
	}
	return htmlutil.ListedPageTitles(ctx, res.Parse.Text)
}

// pageProp collects every value of a property of a single page, following continuations.
func pageProp(ctx context.Context, s Source, pageID int64, params map[string]string, extract func(p apiPage) []string) ([]string, error) {
	params["action"] = "query"
	params["pageids"] = strconv.FormatInt(pageID, 10)
	values, err := collect(
		ctx, s, 0,
		func(int) map[string]string { return params },
		func(res queryResponse) []string {
			var out []string
			for _, p := range res.Query.Pages {
				out = append(out, extract(p)...)
			}
			return out
		},
	)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// FetchPage fetches the content, categories, links and references of a page, following
// redirects.
//
// It returns a *NotFoundError if there is no such page and an *AmbiguousReferenceError if the
// title leads to a disambiguation page.
func (s Source) FetchPage(ctx context.Context, title string) (Page, error) {
	resolved, err := s.resolve(ctx, title)
	if err != nil {
		return Page{}, err
	}
	if _, ok := resolved.PageProps["disambiguation"]; ok {
		options, err := s.disambiguationOptions(ctx, resolved.PageID)
		if err != nil {
			return Page{}, err
		}
		return Page{}, &AmbiguousReferenceError{Title: resolved.Title, Options: options}
	}

	page := Page{
		PageID: resolved.PageID,
		Title:  resolved.Title,
		URL:    resolved.FullURL,
	}

	page.Categories, err = pageProp(ctx, s, page.PageID, map[string]string{
		"prop":    "categories",
		"cllimit": "max",
	}, func(p apiPage) []string {
		out := make([]string, len(p.Categories))
		for i, c := range p.Categories {
			out[i] = strings.TrimPrefix(c.Title, "Category:")
		}
		return out
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch categories: %w", err)
	}

	page.Links, err = pageProp(ctx, s, page.PageID, map[string]string{
		"prop":        "links",
		"plnamespace": "0",
		"pllimit":     "max",
	}, func(p apiPage) []string {
		out := make([]string, len(p.Links))
		for i, l := range p.Links {
			out[i] = l.Title
		}
		return out
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch links: %w", err)
	}

	page.References, err = pageProp(ctx, s, page.PageID, map[string]string{
		"prop":    "extlinks",
		"ellimit": "max",
	}, func(p apiPage) []string {
		out := make([]string, len(p.ExtLinks))
		for i, l := range p.ExtLinks {
			out[i] = l.URL
			if strings.HasPrefix(l.URL, "//") {
				out[i] = "http:" + l.URL
			}
		}
		return out
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch references: %w", err)
	}

	content, err := pageProp(ctx, s, page.PageID, map[string]string{
		"prop":        "extracts",
		"explaintext": "1",
	}, func(p apiPage) []string {
		if p.Extract == "" {
			return nil
		}
		return []string{p.Extract}
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch content: %w", err)
	}
	page.Content = strings.Join(content, "")

	return page, nil
}

// FetchPages fetches every title into a table with PageSchema.
//
// Ambiguous titles are reported and skipped (along with the pages they may refer to when
// showDisambiguation is set), any other error ends the fetch.
func (s Source) FetchPages(ctx context.Context, titles []string, showDisambiguation bool) (*table.Table, error) {
	out := table.New(PageSchema)
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.FetchPage(ctx, title)
		if errors.Is(err, ErrAmbiguous) {
			s.tel.ReportWarning(
				report_ambiguous,
				fmt.Sprintf(
					"search term %q is ambiguous and has multiple pages related to it, change the search term to something more specific, skipped",
					title,
				),
			)
			if showDisambiguation {
				s.tel.ReportWarning(report_ambiguous, err)
			}
			continue
		}
		if err != nil {
			s.tel.ReportBroken(report_fetch_pages, err, title)
			return nil, err
		}

		err = out.Append(page.row())
		if err != nil {
			s.tel.ReportBroken(report_fetch_pages, err, title)
			return nil, err
		}
	}
	s.tel.ReportCount("source.pages", int64(out.Len()))
	return out, nil
}

// FetchRelatedPages searches for n pages related to term and fetches all of them, ambiguous
// titles are skipped without listing their options.
func (s Source) FetchRelatedPages(ctx context.Context, term string, n int) (*table.Table, error) {
	titles, err := s.Search(ctx, term, n)
	if err != nil {
		return nil, err
	}
	return s.FetchPages(ctx, titles, false)
}
