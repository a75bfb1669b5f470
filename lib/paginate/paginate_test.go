package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTransport = errors.New("503 service unavailable")

func TestCountedIssuesCeilTotalOverPageSize(t *testing.T) {
	const total = 120000
	const pageSize = 1000

	var offsets []int
	items, stats, err := Counted(context.Background(), pageSize, func(_ context.Context, c Cursor) Page[int] {
		offsets = append(offsets, c.Offset)
		require.Equal(t, pageSize, c.Limit)

		// every 10th page fails
		if c.Offset > 0 && (c.Offset/pageSize)%10 == 0 {
			return Failed[int](errTransport)
		}
		page := make([]int, pageSize)
		for i := range page {
			page[i] = c.Offset + i
		}
		return Ok(page).WithTotal(total)
	})
	require.NoError(t, err)

	require.Equal(t, 120, stats.Calls)
	require.Len(t, offsets, 120)
	require.Equal(t, 0, offsets[0])
	require.Equal(t, 119000, offsets[len(offsets)-1])

	require.Len(t, stats.Failures, 11)
	for _, f := range stats.Failures {
		require.ErrorIs(t, f, errTransport)
	}
	require.Len(t, items, (120-11)*pageSize)
}

func TestCountedBoundaries(t *testing.T) {
	testCases := []struct {
		total         int
		pageSize      int
		expectedCalls int
	}{
		{total: 0, pageSize: 1000, expectedCalls: 1},
		{total: 1, pageSize: 1000, expectedCalls: 1},
		{total: 1000, pageSize: 1000, expectedCalls: 1},
		{total: 1001, pageSize: 1000, expectedCalls: 2},
		{total: 2999, pageSize: 1000, expectedCalls: 3},
	}

	for _, test := range testCases {
		t.Run(fmt.Sprintf("%d/%d", test.total, test.pageSize), func(t *testing.T) {
			items, stats, err := Counted(context.Background(), test.pageSize, func(_ context.Context, c Cursor) Page[int] {
				n := min(c.Limit, test.total-c.Offset)
				return Ok(make([]int, max(n, 0))).WithTotal(test.total)
			})
			require.NoError(t, err)
			require.Equal(t, test.expectedCalls, stats.Calls)
			require.Len(t, items, test.total)
		})
	}
}

func TestCountedFirstPageFailure(t *testing.T) {
	_, stats, err := Counted(context.Background(), 10, func(_ context.Context, c Cursor) Page[int] {
		return Failed[int](errTransport)
	})
	require.ErrorIs(t, err, errTransport)
	require.Equal(t, 1, stats.Calls)
}

func TestCountedRejectsInvalidPageSize(t *testing.T) {
	_, _, err := Counted(context.Background(), 0, func(_ context.Context, c Cursor) Page[int] {
		t.Fatal("fetch should not be called")
		return Page[int]{}
	})
	require.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestBatched(t *testing.T) {
	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("station-%d", i)
	}

	var batches [][]string
	items, stats, err := Batched(context.Background(), ids, 50, func(_ context.Context, batch []string) Page[string] {
		batches = append(batches, batch)
		return Ok(batch)
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Calls)
	require.Len(t, batches, 1)
	require.Equal(t, ids, batches[0])
	require.Equal(t, ids, items)
}

func TestBatchedSkipsFailedBatches(t *testing.T) {
	inputs := make([]int, 120)
	for i := range inputs {
		inputs[i] = i
	}

	items, stats, err := Batched(context.Background(), inputs, 50, func(_ context.Context, batch []int) Page[int] {
		if batch[0] == 50 {
			return Failed[int](errTransport)
		}
		return Ok(batch)
	})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Calls)
	require.Len(t, stats.Failures, 1)
	require.Equal(t, Cursor{Offset: 50, Limit: 50}, stats.Failures[0].Cursor)
	require.Len(t, items, 70)
	require.Equal(t, 0, items[0])
	require.Equal(t, 100, items[50])
}

func TestBatchedEmptyInput(t *testing.T) {
	items, stats, err := Batched(context.Background(), []string{}, 50, func(_ context.Context, batch []string) Page[string] {
		t.Fatal("fetch should not be called")
		return Page[string]{}
	})
	require.NoError(t, err)
	require.Equal(t, 0, stats.Calls)
	require.Empty(t, items)
}

func TestTokens(t *testing.T) {
	pages := map[string]Page[int]{
		"":  Ok([]int{1, 2}).WithNext("b"),
		"b": Ok([]int{3, 4}).WithNext("c"),
		"c": Ok([]int{5}),
	}

	var tokens []string
	items, stats, err := Tokens(context.Background(), 0, func(_ context.Context, token string, remaining int) Page[int] {
		tokens = append(tokens, token)
		require.Equal(t, 0, remaining)
		return pages[token]
	})
	require.NoError(t, err)
	require.Equal(t, []string{"", "b", "c"}, tokens)
	require.Equal(t, 3, stats.Calls)
	require.Equal(t, []int{1, 2, 3, 4, 5}, items)
}

func TestTokensLimit(t *testing.T) {
	var remainders []int
	items, stats, err := Tokens(context.Background(), 5, func(_ context.Context, token string, remaining int) Page[int] {
		remainders = append(remainders, remaining)
		return Ok([]int{1, 2, 3}).WithNext(token + "x")
	})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Calls)
	require.Equal(t, []int{5, 2}, remainders)
	require.Len(t, items, 5)
}

func TestTokensStopsOnRepeatedToken(t *testing.T) {
	var tokens []string
	items, stats, err := Tokens(context.Background(), 0, func(_ context.Context, token string, _ int) Page[int] {
		tokens = append(tokens, token)
		return Ok([]int{1}).WithNext("same")
	})
	require.NoError(t, err)
	require.Equal(t, []string{"", "same"}, tokens)
	require.Equal(t, 2, stats.Calls)
	require.Equal(t, []int{1}, items)
}

func TestTokensFailure(t *testing.T) {
	items, _, err := Tokens(context.Background(), 0, func(_ context.Context, token string, _ int) Page[int] {
		if token == "" {
			return Ok([]int{1}).WithNext("next")
		}
		return Failed[int](errTransport)
	})
	require.ErrorIs(t, err, errTransport)
	require.Equal(t, []int{1}, items)
}

func TestCancelledContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := Counted(ctx, 10, func(_ context.Context, c Cursor) Page[int] {
		calls++
		cancel()
		return Ok([]int{1}).WithTotal(100)
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
