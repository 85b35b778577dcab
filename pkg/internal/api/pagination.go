package api

// Page is a 1-based page request.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"pageSize"`
}

func NewPage(number, size, defaultSize, maxSize int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	PageCount int   `json:"pageCount"`
	Total     int64 `json:"total"`
}

func (p Page) Result(total int64) Pagination {
	count := 0
	if p.Size > 0 && total > 0 {
		count = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Pagination{
		Page:      p.Number,
		PageSize:  p.Size,
		PageCount: count,
		Total:     total,
	}
}
