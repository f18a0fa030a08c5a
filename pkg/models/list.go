package models

import (
	"math"
	"time"
)

// Pagination defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter narrows a list query. Zero values mean "no restriction".
type ListFilter struct {
	Page     int
	Limit    int
	Search   string     // Free-text match over title/description
	Status   string     // Exact status match, for status-bearing entities
	DateFrom *time.Time // Inclusive lower bound on the entity's date column
	DateTo   *time.Time // Inclusive upper bound on the entity's date column
	UserID   *int64     // Owner filter; admins only, programmers are already scoped
}

// Normalize clamps paging values into their valid ranges.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	// Keep (Page-1)*Limit representable; such pages are simply empty.
	if maxPage := math.MaxInt / f.Limit; f.Page > maxPage {
		f.Page = maxPage
	}
}

// Offset returns the row offset for the current page. Call Normalize first.
func (f *ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes the page returned by a list query.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination builds the pagination block for a filter and total row count.
func NewPagination(f ListFilter, total int) Pagination {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Page is one page of list results.
type Page[T any] struct {
	Items      []*T
	Pagination Pagination
}

// DashboardStats summarises the records visible to a principal.
type DashboardStats struct {
	ReportsByStatus map[string]int `json:"reports_by_status"`
	OpenIssues      int            `json:"open_issues"`
	PendingTasks    int            `json:"pending_tasks"`
	PendingRequests int            `json:"pending_requests"`
	PromptsLogged   int            `json:"prompts_logged"`
}
