// Package paginate assembles complete collections from backends that limit how many items
// they return per call.
//
// Three loop shapes are provided:
//   - Counted: the first page reports a total, the cursor advances by the page size until it
//     reaches the total.
//   - Batched: the inputs being fetched for (ex. station ids) are sliced into fixed size batches,
//     one call per batch.
//   - Tokens: each page hands back an opaque continuation token until there is none left.
//
// Calls are strictly sequential, there is never more than one page in flight.
package paginate

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidPageSize = errors.New("page size must be positive")

// Page is the outcome of fetching a single page, either a successful (possibly empty) list of
// items or a failure. An empty page and a failed page are never the same thing.
type Page[T any] struct {
	items []T
	total int
	next  string
	err   error
}

// Ok creates a successful page.
func Ok[T any](items []T) Page[T] {
	return Page[T]{items: items}
}

// Failed creates a failed page, err must not be nil.
func Failed[T any](err error) Page[T] {
	if err == nil {
		err = errors.New("page failed")
	}
	return Page[T]{err: err}
}

// WithTotal attaches the total number of items in the collection (Counted).
func (p Page[T]) WithTotal(total int) Page[T] {
	p.total = total
	return p
}

// WithNext attaches the continuation token for the following page (Tokens).
func (p Page[T]) WithNext(token string) Page[T] {
	p.next = token
	return p
}

func (p Page[T]) Items() []T {
	return p.items
}

func (p Page[T]) Err() error {
	return p.err
}

func (p Page[T]) Failed() bool {
	return p.err != nil
}

// Cursor is the zero-based position of a page in the collection along with its size.
type Cursor struct {
	Offset int
	Limit  int
}

// PartialPageFailure describes a page that failed while the rest of the collection was
// still fetched. The items of that page are absent from the result.
type PartialPageFailure struct {
	Cursor Cursor
	Err    error
}

func (f PartialPageFailure) Error() string {
	return fmt.Sprintf("page at offset %d (limit %d) failed: %s", f.Cursor.Offset, f.Cursor.Limit, f.Err)
}

func (f PartialPageFailure) Unwrap() error {
	return f.Err
}

type Stats struct {
	// Calls is the number of pages requested, failed ones included.
	Calls    int
	Failures []PartialPageFailure
}

// Counted fetches a collection whose total is reported by its first page.
//
// If the first call (offset 0) fails the total is unknown and its error is
// returned. After that the cursor advances by pageSize while offset < total, failed pages
// are recorded in Stats and skipped. The number of calls is max(1, ceil(total/pageSize)).
func Counted[T any](
	ctx context.Context,
	pageSize int,
	fetch func(ctx context.Context, cursor Cursor) Page[T],
) ([]T, Stats, error) {
	var stats Stats
	if pageSize <= 0 {
		return nil, stats, ErrInvalidPageSize
	}

	cursor := Cursor{Offset: 0, Limit: pageSize}
	first := fetch(ctx, cursor)
	stats.Calls++
	if first.Failed() {
		return nil, stats, fmt.Errorf("first page: %w", first.Err())
	}

	total := first.total
	items := append([]T(nil), first.items...)

	for cursor.Offset += pageSize; cursor.Offset < total; cursor.Offset += pageSize {
		if err := ctx.Err(); err != nil {
			return items, stats, err
		}

		page := fetch(ctx, cursor)
		stats.Calls++
		if page.Failed() {
			stats.Failures = append(stats.Failures, PartialPageFailure{Cursor: cursor, Err: page.Err()})
			continue
		}
		items = append(items, page.items...)
	}

	return items, stats, nil
}

// Batched slices inputs into batches of batchSize and fetches one page per batch.
//
// Failed batches are recorded in Stats and skipped. The number of calls is
// ceil(len(inputs)/batchSize), an empty input makes no calls at all.
func Batched[In, T any](
	ctx context.Context,
	inputs []In,
	batchSize int,
	fetch func(ctx context.Context, batch []In) Page[T],
) ([]T, Stats, error) {
	var stats Stats
	if batchSize <= 0 {
		return nil, stats, ErrInvalidPageSize
	}

	var items []T
	for offset := 0; offset < len(inputs); offset += batchSize {
		if err := ctx.Err(); err != nil {
			return items, stats, err
		}

		end := min(offset+batchSize, len(inputs))
		page := fetch(ctx, inputs[offset:end])
		stats.Calls++
		if page.Failed() {
			stats.Failures = append(stats.Failures, PartialPageFailure{
				Cursor: Cursor{Offset: offset, Limit: batchSize},
				Err:    page.Err(),
			})
			continue
		}
		items = append(items, page.items...)
	}

	return items, stats, nil
}

// Tokens follows continuation tokens, starting from an empty token, until a page returns no
// next token or, when limit > 0, at least limit items were collected (the result is then
// truncated to limit). A failed page ends the loop since there is no token to continue with.
// A page handing back the token it was fetched with is dropped and ends the loop.
func Tokens[T any](
	ctx context.Context,
	limit int,
	fetch func(ctx context.Context, token string, remaining int) Page[T],
) ([]T, Stats, error) {
	var stats Stats
	var items []T
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return items, stats, err
		}

		remaining := 0
		if limit > 0 {
			remaining = limit - len(items)
		}
		page := fetch(ctx, token, remaining)
		stats.Calls++
		if page.Failed() {
			return items, stats, page.Err()
		}
		// a page handing back the token it was fetched with repeats the previous one
		if token != "" && page.next == token {
			return items, stats, nil
		}
		items = append(items, page.items...)

		if limit > 0 && len(items) >= limit {
			return items[:limit], stats, nil
		}
		if page.next == "" {
			return items, stats, nil
		}
		token = page.next
	}
}
