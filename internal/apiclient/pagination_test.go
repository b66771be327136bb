package apiclient

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{30, 7, 5},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d, %d)=%d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestPaginatePartitionsWithoutGapsOrOverlap(t *testing.T) {
	items := make([]int, 37)
	for i := range items {
		items[i] = i
	}

	for _, limit := range []int{1, 5, 10, 37, 50} {
		seen := map[int]int{}
		first := Paginate(items, 1, limit)
		for page := 1; page <= first.TotalPages; page++ {
			result := Paginate(items, page, limit)
			require.LessOrEqual(t, len(result.Data), limit)
			require.Equal(t, 37, result.Total)
			require.Equal(t, page, result.Page)
			for _, item := range result.Data {
				seen[item]++
			}
		}
		require.Len(t, seen, len(items), "limit %d", limit)
		for item, count := range seen {
			require.Equal(t, 1, count, "item %d seen more than once with limit %d", item, limit)
		}
	}
}

func TestPaginatePastEnd(t *testing.T) {
	result := Paginate([]string{"a", "b"}, 4, 10)
	require.Empty(t, result.Data)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.TotalPages)
}

func TestPageQuerySkipsDefaultFilters(t *testing.T) {
	q := PageQuery(0, 0, Filters{"search": " acme ", "status": "all", "roleId": "", "organizationId": "org-1"})
	require.Equal(t, url.Values{
		"page":           {"1"},
		"pageSize":       {"1"},
		"search":         {"acme"},
		"organizationId": {"org-1"},
	}, q)
}
