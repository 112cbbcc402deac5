package property

import (
	"sort"
	"strconv"
	"unicode"

	"golang.org/x/text/cases"
)

// UnitKey is the numeric-aware sort key of a unit number: the leading run of
// digits parsed as an integer (0 when absent) followed by the folded string.
type UnitKey struct {
	Number int64
	Folded string
}

// ParseUnitKey extracts the sort key from a unit number
func ParseUnitKey(unit string) UnitKey {
	end := 0
	for end < len(unit) && unit[end] >= '0' && unit[end] <= '9' {
		end++
	}
	var n int64
	if end > 0 {
		parsed, err := strconv.ParseInt(unit[:end], 10, 64)
		if err != nil {
			parsed = 1<<63 - 1
		}
		n = parsed
	}
	// Casers carry state and cannot be shared across goroutines
	return UnitKey{Number: n, Folded: cases.Fold().String(unit)}
}

// CompareUnits orders unit numbers by leading integer, then by a
// case-insensitive natural comparison of the whole string.
// "1" < "2" < "2A" < "10".
func CompareUnits(a, b string) int {
	ka, kb := ParseUnitKey(a), ParseUnitKey(b)
	switch {
	case ka.Number < kb.Number:
		return -1
	case ka.Number > kb.Number:
		return 1
	}
	if c := naturalCompare(ka.Folded, kb.Folded); c != 0 {
		return c
	}
	// identical after folding: fall back to byte order for a total order
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortUnits sorts unit numbers in place
func SortUnits(units []string) {
	sort.SliceStable(units, func(i, j int) bool {
		return CompareUnits(units[i], units[j]) < 0
	})
}

// SortFlats sorts flats in place by unit number
func SortFlats(flats []Flat) {
	sort.SliceStable(flats, func(i, j int) bool {
		return CompareUnits(flats[i].UnitNumber, flats[j].UnitNumber) < 0
	})
}

// naturalCompare compares digit runs numerically and everything else rune by rune
func naturalCompare(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if unicode.IsDigit(ra[i]) && unicode.IsDigit(rb[j]) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			if c := compareDigitRuns(string(ra[si:i]), string(rb[sj:j])); c != 0 {
				return c
			}
			continue
		}
		if ra[i] != rb[j] {
			if ra[i] < rb[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(ra)-i < len(rb)-j:
		return -1
	case len(ra)-i > len(rb)-j:
		return 1
	}
	return 0
}

func compareDigitRuns(a, b string) int {
	ta, tb := trimZeros(a), trimZeros(b)
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	// "01" after "1"
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
