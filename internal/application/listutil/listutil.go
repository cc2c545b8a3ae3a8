// Package listutil parses list query parameters and pages in-memory results.
package listutil

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultLimit applies when a request sets no limit.
	DefaultLimit = 100
	// MaxLimit caps the page size a client may ask for.
	MaxLimit = 1000
)

// PageParams is a limit/offset window.
type PageParams struct {
	Limit  int
	Offset int
}

// SortParams names a sort key and direction. Sort is empty when the caller's
// default order applies.
type SortParams struct {
	Sort string
	Dir  string
}

// Desc reports whether the direction is descending.
func (s SortParams) Desc() bool { return s.Dir == "desc" }

// ListParams is everything a list endpoint reads from its query string.
type ListParams struct {
	PageParams
	SortParams
	Search string
}

// PageInfo describes one page of a larger result.
type PageInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ChoiceError reports a query value outside its allowed set.
type ChoiceError struct {
	Key   string
	Value string
}

func (e *ChoiceError) Error() string {
	return fmt.Sprintf("%s: unsupported value %q", e.Key, e.Value)
}

// ParsePageParams reads limit and offset. Bad values fall back rather than fail.
// POST: 1 <= Limit <= MaxLimit and Offset >= 0
func ParsePageParams(q url.Values) PageParams {
	p := PageParams{Limit: DefaultLimit}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// ParseSortParams reads sort and dir. A sort key outside columns is dropped
// so it can never reach a query.
// POST: Dir is "asc" or "desc"
func ParseSortParams(q url.Values, columns []string) SortParams {
	s := SortParams{Dir: "asc"}
	if key := q.Get("sort"); slices.Contains(columns, key) {
		s.Sort = key
	}
	if strings.EqualFold(q.Get("dir"), "desc") {
		s.Dir = "desc"
	}
	return s
}

// ParseListParams reads paging, sorting and the free-text q parameter.
func ParseListParams(q url.Values, sortColumns []string) ListParams {
	return ListParams{
		PageParams: ParsePageParams(q),
		SortParams: ParseSortParams(q, sortColumns),
		Search:     strings.TrimSpace(q.Get("q")),
	}
}

// Choice returns the value of key when it is empty or accepted by valid.
// Otherwise it returns a *ChoiceError.
func Choice(q url.Values, key string, valid func(string) bool) (string, error) {
	v := q.Get(key)
	if v == "" || valid(v) {
		return v, nil
	}
	return "", &ChoiceError{Key: key, Value: v}
}

// Page returns the window of items selected by p, never nil.
// POST: len(result) <= p.Limit when p.Limit > 0
func Page[T any](items []T, p PageParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	rest := items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(rest) {
		rest = rest[:p.Limit]
	}
	return rest
}

// NewPageInfo describes the page p of total items.
func NewPageInfo(p PageParams, total int) PageInfo {
	return PageInfo{Limit: p.Limit, Offset: p.Offset, Total: total}
}

// HasMore reports whether rows remain after this page.
func (p PageInfo) HasMore() bool {
	return p.Offset+p.Limit < p.Total
}
