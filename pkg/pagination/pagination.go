package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"forumpipe/internal/constants"
)

// Params is a zero-based page request.
type Params struct {
	Page    int
	Size    int
	SortBy  string
	SortAsc bool
}

func (p Params) Offset() int {
	return p.Page * p.Size
}

// Page is the list envelope returned by every paginated endpoint.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, p Params, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// FromQuery reads page, size, sortBy and sortDir. Out of range values are clamped and sortBy
// falls back to defaultSort unless it is one of allowedSorts.
func FromQuery(c *gin.Context, defaultSort string, allowedSorts ...string) Params {
	p := Params{
		Page:   atoiOr(c.Query("page"), 0),
		Size:   atoiOr(c.Query("size"), constants.DefaultPageSize),
		SortBy: defaultSort,
	}
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = constants.DefaultPageSize
	}
	if p.Size > constants.MaxPageSize {
		p.Size = constants.MaxPageSize
	}

	if sortBy := c.Query("sortBy"); sortBy != "" {
		for _, allowed := range allowedSorts {
			if sortBy == allowed {
				p.SortBy = sortBy
				break
			}
		}
	}
	p.SortAsc = strings.EqualFold(c.Query("sortDir"), "ASC")
	return p
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
