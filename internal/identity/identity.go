package identity

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"

	"github.com/Amendor47/Studying-coach/internal/domain"
)

// Normalize cleans item text for comparison: lower-cased, punctuation
// stripped, runs of whitespace collapsed to a single space.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
		// Punctuation and symbols are dropped entirely.
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Key builds the dedup key for a payload: kind, theme and normalized
// primary text joined with newlines so fields cannot run into each other,
// then hashed.
func Key(kind domain.Kind, theme string, primary string) string {
	joined := strings.Join([]string{
		string(kind),
		Normalize(theme),
		Normalize(primary),
	}, "\n")
	return fmt.Sprintf("%x", sha256.Sum256([]byte(joined)))
}

// ForDraft returns the dedup key of a draft.
func ForDraft(d domain.Draft) string {
	return Key(d.Kind, d.Theme, d.Payload.PrimaryText(d.Kind))
}

// ForItem returns the dedup key of a stored item. Acceptance uses this as
// the item's stable ID, so an item's identity and its dedup key coincide.
func ForItem(it domain.StudyItem) string {
	return Key(it.Kind, it.Theme, it.Payload.PrimaryText(it.Kind))
}
