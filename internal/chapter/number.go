package chapter

import (
	"strconv"
	"strings"
)

// ParseNumber extracts the ASCII digits of token and parses them as one
// integer: "Chapter 12" gives 12. ok is false when token has no digits or
// the digits overflow an int.
func ParseNumber(token string) (n int, ok bool) {
	var b strings.Builder
	for _, r := range token {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
