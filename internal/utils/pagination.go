// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a bounded window over an ordered collection.
type Page struct {
	Number int // 1-based
	Size   int
}

// ParsePage reads page and page_size style values, applying defSize when
// absent and clamping the size to [1, maxSize].
func ParsePage(page, size string, defSize, maxSize int) Page {
	p := Page{Number: AtoiDefault(page, 1), Size: AtoiDefault(size, defSize)}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Bounds returns the half-open [start, end) slice indexes of p within a
// collection of n items. Pages past the end yield start == end == n.
func (p Page) Bounds(n int) (start, end int) {
	start = (p.Number - 1) * p.Size
	if start > n {
		start = n
	}
	end = start + p.Size
	if end > n {
		end = n
	}
	return start, end
}

// TotalPages returns the number of pages needed for n items.
func (p Page) TotalPages(n int) int {
	if p.Size <= 0 {
		return 0
	}
	return (n + p.Size - 1) / p.Size
}
