package document

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// MatchName fuzzy-matches the registered first and last name against OCR text.
// It succeeds when any name ordering scores above threshold (0-100), or when
// both name fragments appear in the text with whitespace removed.
func MatchName(text, firstName, lastName string, threshold int) bool {
	first := compact(normalize(firstName))
	last := compact(normalize(lastName))
	if first == "" && last == "" {
		return false
	}
	ocr := normalize(text)

	variants := []string{
		first + last,
		last + first,
		strings.TrimSpace(first + " " + last),
		strings.TrimSpace(last + " " + first),
	}
	for _, v := range variants {
		if PartialTokenSetRatio(v, ocr) > float64(threshold) {
			return true
		}
	}

	joined := compact(ocr)
	return first != "" && last != "" && strings.Contains(joined, first) && strings.Contains(joined, last)
}

// PartialTokenSetRatio scores two strings 0-100. Any shared token scores 100;
// otherwise the sorted token differences are compared with PartialRatio.
func PartialTokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			return 100
		}
		onlyA = append(onlyA, tok)
	}
	for tok := range tb {
		onlyB = append(onlyB, tok)
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return PartialRatio(strings.Join(onlyA, " "), strings.Join(onlyB, " "))
}

// PartialRatio is the best Ratio between the shorter string and every
// equal-length window of the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	best := 0.0
	s := string(short)
	for i := 0; i+len(short) <= len(long); i++ {
		if r := Ratio(s, string(long[i:i+len(short)])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Ratio is the Levenshtein similarity scaled to 0-100.
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// normalize lower-cases and replaces every non-alphanumeric run with one space.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func compact(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}
