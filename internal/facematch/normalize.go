package facematch

import (
	"strings"
	"unicode"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Séna" -> "Sena").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes, collapsed whitespace).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeStudentID trims and upper-cases an external reference code.
func NormalizeStudentID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// MatchesQuery reports whether an identity matches a free-text search.
// The query is compared against the normalized name and the student ID.
func MatchesQuery(identity database.Identity, query string) bool {
	q := NormalizePersonName(query)
	if q == "" {
		return true
	}
	if strings.Contains(NormalizePersonName(identity.Name), q) {
		return true
	}
	return strings.Contains(NormalizeStudentID(identity.StudentID), NormalizeStudentID(query))
}
