// Package budget guards queries against metered backends: the cost of a query is estimated
// with a dry run first, and the query only executes if that estimate fits in the caller's
// byte ceiling.
package budget

import (
	"context"
	"errors"
	"fmt"
	"social-signals/lib/assert"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"
)

const (
	// BytesPerGB is the factor used to convert a ceiling in gigabytes to bytes.
	BytesPerGB = 1 << 30

	DefaultDataLimitGB = 1.0

	report_executor_estimate = "executor.estimate"
	report_executor_execute  = "executor.execute"
)

var (
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrInvalidDataLimit = errors.New("data limit must be positive")
)

// Param is a value bound to a named parameter (`@name`) of a query.
type Param struct {
	Name  string
	Value any
}

// Query is the text of a query along with the values bound to its parameters.
type Query struct {
	SQL    string
	Params []Param
}

// Request is a single logical fetch: a query, the schema its result is materialized into,
// and a ceiling on how much data the query may process.
type Request struct {
	Query  Query
	Schema table.Schema
	// DataLimitGB is the ceiling in gigabytes, zero means DefaultDataLimitGB.
	DataLimitGB float64
}

func (r Request) limitGB() float64 {
	if r.DataLimitGB == 0 {
		return DefaultDataLimitGB
	}
	return r.DataLimitGB
}

// DataLimitBytes returns the ceiling converted to bytes.
func (r Request) DataLimitBytes() int64 {
	return int64(r.limitGB() * BytesPerGB)
}

func (r Request) validate() error {
	if r.limitGB() < 0 {
		return fmt.Errorf("%w: %v GB", ErrInvalidDataLimit, r.DataLimitGB)
	}
	return nil
}

// Estimate is the number of bytes a query is projected to process.
type Estimate struct {
	Bytes int64
}

func (e Estimate) GB() float64 {
	return float64(e.Bytes) / BytesPerGB
}

// QuotaExceededError is returned when the estimate of a query is over its ceiling,
// the query is never executed in that case.
type QuotaExceededError struct {
	EstimatedBytes int64
	LimitBytes     int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf(
		"query will process %.3f GB, which exceeds the limit of %.3f GB",
		float64(e.EstimatedBytes)/BytesPerGB,
		float64(e.LimitBytes)/BytesPerGB,
	)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Backend is a metered query service.
type Backend interface {
	// DryRun returns the number of bytes the query would process without running it
	// (and without consulting any result cache).
	DryRun(ctx context.Context, query Query) (int64, error)
	// Run executes the query, waits for it to complete and materializes every row of the
	// result into a table of the given schema.
	Run(ctx context.Context, query Query, schema table.Schema) (*table.Table, error)
}

type Executor struct {
	backend Backend
	tel     telemetry.API
}

func NewExecutor(backend Backend, tel telemetry.API) Executor {
	assert.NotNil(backend)
	assert.NotNil(tel)
	return Executor{backend: backend, tel: tel}
}

// Estimate dry runs the query and returns its projected cost.
func (e Executor) Estimate(ctx context.Context, query Query) (Estimate, error) {
	bytes, err := e.backend.DryRun(ctx, query)
	if err != nil {
		e.tel.ReportBroken(report_executor_estimate, err)
		return Estimate{}, fmt.Errorf("estimate query: %w", err)
	}
	return Estimate{Bytes: bytes}, nil
}

// Execute estimates the cost of the request, refuses it with a *QuotaExceededError if the
// estimate is over the ceiling and otherwise runs it and returns the result.
func (e Executor) Execute(ctx context.Context, req Request) (*table.Table, error) {
	err := req.validate()
	if err != nil {
		return nil, err
	}

	estimate, err := e.Estimate(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	e.tel.ReportInfo(
		fmt.Sprintf("estimated data usage for query: %.3f GB", estimate.GB()),
		estimate.Bytes,
	)

	limit := req.DataLimitBytes()
	if estimate.Bytes > limit {
		return nil, &QuotaExceededError{
			EstimatedBytes: estimate.Bytes,
			LimitBytes:     limit,
		}
	}

	result, err := e.backend.Run(ctx, req.Query, req.Schema)
	if err != nil {
		e.tel.ReportBroken(report_executor_execute, err)
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return result, nil
}
