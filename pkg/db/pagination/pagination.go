package pagination

const (
	DefaultPageSize = 10
	MaxPageSize     = 250
)

// Pagination is a 1-based page request as sent by the dashboard.
type Pagination struct {
	Page     int `form:"page,default=1" json:"page"`
	PageSize int `form:"pageSize,default=10" json:"pageSize"`
}

// Normalize clamps the request into a usable page.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

func (p Pagination) Limit() int {
	return p.Normalize().PageSize
}

// Result is one page of records plus the total count used by the pager.
type Result[T any] struct {
	Records []*T  `json:"records"`
	Total   int64 `json:"total"`
}
