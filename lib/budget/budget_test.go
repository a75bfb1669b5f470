package budget

import (
	"context"
	"errors"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

var resultSchema = table.NewSchema(
	table.Field{Name: "id", Kind: table.String},
)

type fakeBackend struct {
	estimate int64
	dryErr   error
	runErr   error

	dryRuns int
	runs    int
	queries []Query
}

func (b *fakeBackend) DryRun(_ context.Context, query Query) (int64, error) {
	b.dryRuns++
	b.queries = append(b.queries, query)
	return b.estimate, b.dryErr
}

func (b *fakeBackend) Run(_ context.Context, query Query, schema table.Schema) (*table.Table, error) {
	b.runs++
	b.queries = append(b.queries, query)
	if b.runErr != nil {
		return nil, b.runErr
	}
	out := table.New(schema)
	err := out.Append(table.Row{"id": "a"})
	return out, err
}

func TestDataLimitBytes(t *testing.T) {
	require.Equal(t, int64(1073741824), Request{DataLimitGB: 1}.DataLimitBytes())
	require.Equal(t, int64(1073741824), Request{}.DataLimitBytes())
	require.Equal(t, int64(536870912), Request{DataLimitGB: 0.5}.DataLimitBytes())
}

func TestExecuteUnderLimit(t *testing.T) {
	backend := &fakeBackend{estimate: BytesPerGB - 1}
	rec := telemetry.NewRecorder()
	executor := NewExecutor(backend, rec)

	query := Query{SQL: "select 1", Params: []Param{{Name: "x", Value: "y"}}}
	result, err := executor.Execute(context.Background(), Request{
		Query:       query,
		Schema:      resultSchema,
		DataLimitGB: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 1, result.Len())

	require.Equal(t, 1, backend.dryRuns)
	require.Equal(t, 1, backend.runs)
	// the identical query is used for both modes
	require.Equal(t, []Query{query, query}, backend.queries)

	infos := rec.Reports(telemetry.KindInfo)
	require.Len(t, infos, 1)
	require.Equal(t, "estimated data usage for query: 1.000 GB", infos[0].ID)
}

func TestExecuteAtLimit(t *testing.T) {
	backend := &fakeBackend{estimate: BytesPerGB}
	_, err := NewExecutor(backend, telemetry.NewRecorder()).Execute(context.Background(), Request{
		Query:  Query{SQL: "select 1"},
		Schema: resultSchema,
	})
	require.NoError(t, err)
	require.Equal(t, 1, backend.runs)
}

func TestExecuteOverLimit(t *testing.T) {
	backend := &fakeBackend{estimate: BytesPerGB + 1}
	rec := telemetry.NewRecorder()

	result, err := NewExecutor(backend, rec).Execute(context.Background(), Request{
		Query:       Query{SQL: "select 1"},
		Schema:      resultSchema,
		DataLimitGB: 1,
	})
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.Contains(t, err.Error(), "exceeds the limit of 1.000 GB")

	var quota *QuotaExceededError
	require.True(t, errors.As(err, &quota))
	require.Equal(t, int64(BytesPerGB+1), quota.EstimatedBytes)
	require.Equal(t, int64(BytesPerGB), quota.LimitBytes)

	require.Equal(t, 1, backend.dryRuns)
	require.Equal(t, 0, backend.runs)
	require.Len(t, rec.Reports(telemetry.KindInfo), 1)
}

func TestExecutePropagatesBackendErrors(t *testing.T) {
	dryErr := errors.New("invalid credentials")
	backend := &fakeBackend{dryErr: dryErr}
	rec := telemetry.NewRecorder()
	_, err := NewExecutor(backend, rec).Execute(context.Background(), Request{Schema: resultSchema})
	require.ErrorIs(t, err, dryErr)
	require.Equal(t, 0, backend.runs)
	require.True(t, rec.Has(telemetry.KindBroken, report_executor_estimate))

	runErr := errors.New("connection reset")
	backend = &fakeBackend{runErr: runErr}
	_, err = NewExecutor(backend, telemetry.NewRecorder()).Execute(context.Background(), Request{Schema: resultSchema})
	require.ErrorIs(t, err, runErr)
	require.Equal(t, 1, backend.runs)
}

func TestExecuteRejectsNegativeLimit(t *testing.T) {
	backend := &fakeBackend{}
	_, err := NewExecutor(backend, telemetry.NewRecorder()).Execute(context.Background(), Request{
		Schema:      resultSchema,
		DataLimitGB: -2,
	})
	require.ErrorIs(t, err, ErrInvalidDataLimit)
	require.Equal(t, 0, backend.dryRuns)
}
