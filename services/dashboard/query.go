package dashboard

import (
	"contest-review/pkg/db/pagination"
	"contest-review/services/review"
)

// ListQuery is the dashboard filter. It is a value: every With* method
// returns a modified copy and leaves the receiver untouched.
type ListQuery struct {
	week     *int
	status   *review.ReviewStatus
	page     int
	pageSize int
}

func NewListQuery() ListQuery {
	return ListQuery{page: 1, pageSize: pagination.DefaultPageSize}
}

func (q ListQuery) WithWeek(week int) ListQuery {
	q.week = &week
	return q
}

func (q ListQuery) WithoutWeek() ListQuery {
	q.week = nil
	return q
}

func (q ListQuery) WithStatus(s review.ReviewStatus) ListQuery {
	q.status = &s
	return q
}

func (q ListQuery) WithoutStatus() ListQuery {
	q.status = nil
	return q
}

func (q ListQuery) WithPage(page int) ListQuery {
	q.page = page
	return q
}

func (q ListQuery) WithPageSize(size int) ListQuery {
	q.pageSize = size
	return q
}

func (q ListQuery) Week() (int, bool) {
	if q.week == nil {
		return 0, false
	}
	return *q.week, true
}

func (q ListQuery) Status() (review.ReviewStatus, bool) {
	if q.status == nil {
		return 0, false
	}
	return *q.status, true
}

func (q ListQuery) Pagination() pagination.Pagination {
	return pagination.Pagination{Page: q.page, PageSize: q.pageSize}.Normalize()
}

func (q ListQuery) weekPtr() *int {
	if q.week == nil {
		return nil
	}
	w := *q.week
	return &w
}
