package gdelt

import (
	"context"
	"errors"
	"fmt"
	"social-signals/lib/assert"
	"social-signals/lib/budget"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const report_bigquery = "bigquery"

type BigQueryOptions struct {
	// CredentialsPath is the path to a service account key file.
	CredentialsPath string
	// ProjectID is the project queries are billed to, it is read from the credentials when
	// empty.
	ProjectID string
}

// BigQuery implements budget.Backend.
type BigQuery struct {
	client *bigquery.Client
	tel    telemetry.API
}

func NewBigQuery(ctx context.Context, opts BigQueryOptions, tel telemetry.API) (BigQuery, error) {
	assert.NotNil(tel)

	if opts.CredentialsPath == "" {
		return BigQuery{}, fmt.Errorf("bigquery credentials path must not be empty")
	}
	projectID := opts.ProjectID
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}

	client, err := bigquery.NewClient(ctx, projectID, option.WithCredentialsFile(opts.CredentialsPath))
	if err != nil {
		return BigQuery{}, fmt.Errorf("create bigquery client: %w", err)
	}
	return BigQuery{
		client: client,
		tel:    telemetry.NewScopedAPI(report_bigquery, tel),
	}, nil
}

func (b BigQuery) Close() error {
	return b.client.Close()
}

func (b BigQuery) query(q budget.Query) *bigquery.Query {
	out := b.client.Query(q.SQL)
	out.Parameters = queryParameters(q.Params)
	return out
}

func queryParameters(params []budget.Param) []bigquery.QueryParameter {
	out := make([]bigquery.QueryParameter, len(params))
	for i, p := range params {
		out[i] = bigquery.QueryParameter{Name: p.Name, Value: p.Value}
	}
	return out
}

func (b BigQuery) DryRun(ctx context.Context, q budget.Query) (int64, error) {
	query := b.query(q)
	query.DryRun = true
	query.DisableQueryCache = true

	job, err := query.Run(ctx)
	if err != nil {
		return 0, err
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, errors.New("dry run returned no statistics")
	}
	if err := status.Err(); err != nil {
		return 0, err
	}
	return status.Statistics.TotalBytesProcessed, nil
}

func (b BigQuery) Run(ctx context.Context, q budget.Query, schema table.Schema) (*table.Table, error) {
	query := b.query(q)
	query.DisableQueryCache = true

	job, err := query.Run(ctx)
	if err != nil {
		return nil, err
	}
	b.tel.ReportDebug("waiting for query job", job.ID())
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		return nil, err
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := table.New(schema)
	droppedColumns := map[string]bool{}
	for {
		var values map[string]bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		row, dropped := schema.Project(rawRow(values))
		for _, d := range dropped {
			droppedColumns[d] = true
		}
		err = out.Append(convertRow(schema, row))
		if err != nil {
			return nil, err
		}
	}
	if len(droppedColumns) > 0 {
		b.tel.ReportDebug("dropped columns outside of the result schema", len(droppedColumns))
	}
	return out, nil
}

func rawRow(values map[string]bigquery.Value) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// convertRow coerces the values the bigquery client decodes into the kinds of schema.
func convertRow(schema table.Schema, row table.Row) table.Row {
	for _, field := range schema.Fields() {
		v, ok := row[field.Name]
		if !ok || v == nil {
			continue
		}
		row[field.Name] = convertValue(field.Kind, v)
	}
	return row
}

func convertValue(kind table.Kind, v any) any {
	switch kind {
	case table.String:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	case table.Time:
		switch t := v.(type) {
		case civil.DateTime:
			return t.In(time.UTC)
		case civil.Date:
			return t.In(time.UTC)
		}
	}
	return v
}
