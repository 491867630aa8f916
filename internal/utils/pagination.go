// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page describes one window of a paginated listing.
type Page struct {
	Number int // 1-based page number, clamped into range
	Size   int
	Offset int
	Total  int64
	Pages  int // total page count, at least 1
}

// Paginate computes the window for page number (1-based) over total rows.
// Out-of-range page numbers are clamped rather than rejected so a stale
// "/notes 9" after deletions still answers with the last page.
func Paginate(page, size int, total int64) Page {
	if size < 1 {
		size = 1
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return Page{
		Number: page,
		Size:   size,
		Offset: (page - 1) * size,
		Total:  total,
		Pages:  pages,
	}
}
