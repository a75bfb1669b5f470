// Package gdelt fetches articles of the GDELT Global Knowledge Graph from its public
// BigQuery dataset.
package gdelt

import (
	"context"
	"social-signals/lib/assert"
	"social-signals/lib/budget"
	"social-signals/lib/chrono"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
)

const report_get_articles = "source.get-gkg-articles"

type Source struct {
	executor budget.Executor
	time     chrono.TimeAPI
	tel      telemetry.API
}

func NewSource(backend budget.Backend, tel telemetry.API, clock chrono.TimeAPI) Source {
	assert.NotNil(tel)
	assert.NotNil(clock)
	tel = telemetry.NewScopedAPI("gdelt", tel)
	return Source{
		executor: budget.NewExecutor(backend, tel),
		time:     clock,
		tel:      tel,
	}
}

func (s Source) request(q ArticlesQuery) (budget.Request, error) {
	q = q.withDefaults(s.time.Now())
	query, err := BuildArticlesQuery(q)
	if err != nil {
		return budget.Request{}, err
	}
	return budget.Request{
		Query:       query,
		Schema:      ArticleSchema,
		DataLimitGB: q.DataLimitGB,
	}, nil
}

// EstimateGKGArticles returns how much data GetGKGArticles would process without running
// the query.
func (s Source) EstimateGKGArticles(ctx context.Context, q ArticlesQuery) (budget.Estimate, error) {
	req, err := s.request(q)
	if err != nil {
		return budget.Estimate{}, err
	}
	return s.executor.Estimate(ctx, req.Query)
}

// GetGKGArticles runs the articles query if its estimate fits in q.DataLimitGB, it returns a
// *budget.QuotaExceededError otherwise.
func (s Source) GetGKGArticles(ctx context.Context, q ArticlesQuery) (*table.Table, error) {
	req, err := s.request(q)
	if err != nil {
		s.tel.ReportBroken(report_get_articles, err)
		return nil, err
	}
	articles, err := s.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	s.tel.ReportCount("source.articles", int64(articles.Len()))
	return articles, nil
}
