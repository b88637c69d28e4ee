package store

// Page size bounds for listing endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageParams are 1-based page/limit pagination parameters.
type PageParams struct {
	Page  int
	Limit int
}

// Validate corrects out-of-range parameters in place.
func (p *PageParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// ListOptions converts the page into a limit/offset window.
func (p PageParams) ListOptions() ListOptions {
	return ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// TotalPages returns ceil(total / limit).
func (p PageParams) TotalPages(total int64) int64 {
	if p.Limit <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (total + limit - 1) / limit
}
