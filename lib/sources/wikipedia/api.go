package wikipedia

import (
	"context"
	"net/url"
	"social-signals/lib/paginate"
	"social-signals/lib/transport"
	"strconv"
)

// the api caps most list sizes at this many entries per request
const maxPerRequest = 500

type titled struct {
	Title string `json:"title"`
}

type apiPage struct {
	PageID    int64             `json:"pageid"`
	Title     string            `json:"title"`
	Missing   bool              `json:"missing"`
	Invalid   bool              `json:"invalid"`
	FullURL   string            `json:"fullurl"`
	PageProps map[string]string `json:"pageprops"`

	Categories []titled `json:"categories"`
	Links      []titled `json:"links"`
	ExtLinks   []struct {
		URL string `json:"url"`
	} `json:"extlinks"`
	Extract string `json:"extract"`
}

type queryResponse struct {
	Continue map[string]any `json:"continue"`
	Query    struct {
		SearchInfo struct {
			TotalHits  int    `json:"totalhits"`
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []titled   `json:"search"`
		Pages  []apiPage `json:"pages"`
	} `json:"query"`
	Parse struct {
		Title  string `json:"title"`
		PageID int64  `json:"pageid"`
		Text   string `json:"text"`
	} `json:"parse"`
	Error *APIError `json:"error"`
}

// call makes a single request to the action api, continuation holds the parameters of a
// previous response's `continue` object.
func (s Source) call(ctx context.Context, params map[string]string, continuation url.Values) (queryResponse, error) {
	var parsed queryResponse
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":        "json",
			"formatversion": "2",
		}).
		SetQueryParams(params).
		SetQueryParamsFromValues(continuation).
		SetResult(&parsed).
		Get(s.apiURL)
	err = transport.Check(res, err)
	if err != nil {
		return queryResponse{}, err
	}
	if parsed.Error != nil {
		return queryResponse{}, parsed.Error
	}
	return parsed, nil
}

// encodeContinue turns a `continue` object into an opaque token, empty when there is nothing
// left to fetch.
func encodeContinue(continuation map[string]any) string {
	if len(continuation) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range continuation {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case float64:
			values.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			values.Set(k, strconv.FormatBool(v))
		}
	}
	return values.Encode()
}

// collect follows the continuation of a query until it is exhausted or limit items were
// collected (limit <= 0 means no limit). params receives how many items are still wanted.
func collect[T any](
	ctx context.Context,
	s Source,
	limit int,
	params func(remaining int) map[string]string,
	extract func(res queryResponse) []T,
) ([]T, error) {
	items, _, err := paginate.Tokens(
		ctx, limit,
		func(ctx context.Context, token string, remaining int) paginate.Page[T] {
			continuation, err := url.ParseQuery(token)
			if err != nil {
				return paginate.Failed[T](err)
			}
			res, err := s.call(ctx, params(remaining), continuation)
			if err != nil {
				return paginate.Failed[T](err)
			}
			return paginate.Ok(extract(res)).WithNext(encodeContinue(res.Continue))
		},
	)
	return items, err
}
