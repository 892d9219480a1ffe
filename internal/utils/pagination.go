// Package utils provides small helpers shared by the transport layer.
package utils

import (
	"strconv"
	"strings"
)

// LimitParam parses a page-size query value. Surrounding whitespace is
// ignored. Empty, non-integer and out-of-range ([1, max]) values all yield
// def rather than an error.
//
//	LimitParam("20", 10, 50)  // 20
//	LimitParam(" 7 ", 10, 50) // 7
//	LimitParam("0", 10, 50)   // 10
//	LimitParam("abc", 10, 50) // 10
func LimitParam(s string, def, max int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > max {
		return def
	}
	return n
}
