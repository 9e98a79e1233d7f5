package catalog

import (
	"sort"
	"strings"
	"unicode"
)

// SortItems orders records for viewing: season (blank last, numeric-aware),
// then episode (blank last, numeric-aware), then ID so equal labels keep
// insertion order.
func SortItems(items []*FileRecord) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := compareBlankLast(a.Season, b.Season); c != 0 {
			return c < 0
		}
		if c := compareBlankLast(a.Episode, b.Episode); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func compareBlankLast(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return CompareNatural(a, b)
}

// CompareNatural compares two labels treating runs of digits as numbers, so
// "Episode 2" sorts before "Episode 10" and "S2" equals "S02" numerically.
// Text runs compare case-insensitively. Returns -1, 0 or 1.
func CompareNatural(a, b string) int {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		xNum, yNum := isDigits(x), isDigits(y)
		var c int
		switch {
		case xNum && yNum:
			c = compareNumeric(x, y)
		case xNum:
			c = -1
		case yNum:
			c = 1
		default:
			c = strings.Compare(strings.ToLower(x), strings.ToLower(y))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	return 0
}

// compareNumeric compares digit strings of any length without parsing.
func compareNumeric(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}

func chunks(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i := 1; i <= len(runes); i++ {
		if i == len(runes) || unicode.IsDigit(runes[i]) != unicode.IsDigit(runes[i-1]) {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
