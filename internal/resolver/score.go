package resolver

import (
	"math"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Score returns a similarity in [0,100] between a and b. It is the larger of
// the plain Levenshtein ratio and a partial ratio that aligns the shorter
// string against every same-length window of the longer one, discounted by
// how much the lengths differ.
func Score(a, b string) int {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	full := ratio(na, nb)

	short, long := []rune(na), []rune(nb)
	if len(short) > len(long) {
		short, long = long, short
	}
	partial := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(string(short), string(long[i:i+len(short)]))
		if r > partial {
			partial = r
		}
		if partial == 100 {
			break
		}
	}
	partial *= lengthWeight(float64(len(long)) / float64(len(short)))

	return int(math.Round(math.Max(full, partial)))
}

// ratio is 100*(1 - distance/maxLen), monotonic in edit distance.
func ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(maxLen))
}

func lengthWeight(lengthRatio float64) float64 {
	switch {
	case lengthRatio < 1.5:
		return 0.95
	case lengthRatio < 3:
		return 0.9
	case lengthRatio < 8:
		return 0.75
	default:
		return 0.6
	}
}

// normalize lowercases, turns punctuation into spaces and collapses runs of whitespace.
func normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
