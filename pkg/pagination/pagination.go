// Package pagination extracts page/size parameters the way the upstream
// HIS counts pages: 1-based page numbers with a capped page size.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page int
	Size int
}

// FromContext extracts pagination parameters from the echo context,
// clamping them to sane bounds.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Params{Page: page, Size: size}
}

// TotalPages returns how many pages a result set of total rows spans.
func (p Params) TotalPages(total int) int {
	if total <= 0 || p.Size <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}

// HasNext reports whether a page follows the current one.
func (p Params) HasNext(total int) bool {
	return p.Page < p.TotalPages(total)
}
