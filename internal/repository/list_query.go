package repository

// ListQuery carries pagination, filtering and sorting for list endpoints
type ListQuery struct {
	Page    int
	PerPage int
	Filters map[string]string
	SortBy  string
	SortDir string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
		SortBy:  "created_at",
		SortDir: "desc",
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	return (q.Page - 1) * q.PerPage
}
