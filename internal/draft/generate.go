// Package draft synthesizes candidate study items from raw text without
// any external AI call. Output is deterministic for a given input: the
// only randomness is seeded from the content itself.
package draft

import (
	"hash/fnv"
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Amendor47/Studying-coach/internal/chunk"
	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/extract"
	"github.com/Amendor47/Studying-coach/internal/identity"
)

// ReasonTooSparse is returned when the text yields no usable segments or
// no usable drafts. It is a reason code, not an error: degraded input is
// an expected outcome for this pipeline.
const ReasonTooSparse = "input_too_sparse"

const blankMarker = domain.BlankMarker

// Config bundles the pipeline ceilings for one generation run.
type Config struct {
	Chunk   chunk.Config
	Extract extract.Config
}

// DefaultConfig returns generation bounds suitable for course notes.
func DefaultConfig() Config {
	return Config{Chunk: chunk.DefaultConfig(), Extract: extract.DefaultConfig()}
}

// Metrics describes the analyzed document as a whole.
type Metrics struct {
	// Readability is in [0,1], from average sentence length and
	// vocabulary complexity. Higher reads easier.
	Readability float64 `json:"readability"`
	// Density is the ratio of distinct key terms to total words.
	Density float64 `json:"density"`
}

// Result is the outcome of one generation run. When Reason is set the
// text produced nothing usable and Drafts is empty.
type Result struct {
	Drafts  []domain.Draft `json:"drafts"`
	Metrics Metrics        `json:"metrics"`
	Reason  string         `json:"reason,omitempty"`
}

// Generate runs chunking, extraction and synthesis over raw text. It
// never fails on malformed or too-short input; it degrades to fewer or
// zero drafts.
func Generate(text string, cfg Config) Result {
	segments := chunk.Split(text, cfg.Chunk)
	if len(segments) == 0 {
		return Result{Reason: ReasonTooSparse}
	}

	concepts := extract.Document(segments, cfg.Extract)
	pool := termPool(concepts)

	var drafts []domain.Draft
	for i, seg := range segments {
		drafts = append(drafts, segmentDrafts(seg, concepts[i], pool)...)
	}

	metrics := computeMetrics(text, concepts)
	if len(drafts) == 0 {
		return Result{Metrics: metrics, Reason: ReasonTooSparse}
	}
	return Result{Drafts: drafts, Metrics: metrics}
}

// termPool collects the distinct key terms of the whole document, in
// document order. MCQ and true/false decoys are drawn from here and
// never from another document, which keeps distractors plausible.
func termPool(concepts []extract.Concepts) []extract.Term {
	var pool []extract.Term
	seen := make(map[string]bool)
	for _, c := range concepts {
		for _, term := range c.Terms {
			if !seen[term.Text] {
				seen[term.Text] = true
				pool = append(pool, term)
			}
		}
	}
	return pool
}

// segmentDrafts synthesizes one batch of drafts from a segment's
// concepts. The pseudo-random choices (MCQ correct position, true/false
// polarity) are seeded from the segment's normalized text so repeated
// runs over the same input produce identical drafts.
func segmentDrafts(seg chunk.Segment, c extract.Concepts, pool []extract.Term) []domain.Draft {
	rng := rand.New(rand.NewSource(contentSeed(seg.Text)))

	var drafts []domain.Draft
	for _, sentence := range c.Sentences {
		term, found, ok := locateTerm(sentence, c.Terms)
		if !ok {
			continue
		}

		drafts = append(drafts, domain.Draft{
			Kind:  domain.KindQA,
			Theme: seg.Theme,
			Payload: domain.Payload{
				Front: term.Surface,
				Back:  sentence,
			},
		})

		drafts = append(drafts, domain.Draft{
			Kind:  domain.KindCloze,
			Theme: seg.Theme,
			Payload: domain.Payload{
				Text:   strings.Replace(sentence, found, blankMarker, 1),
				Blanks: []domain.Blank{{Answer: found}},
			},
		})

		if tf, ok := trueFalseDraft(seg.Theme, sentence, term, found, pool, rng); ok {
			drafts = append(drafts, tf)
		}

		if mcq, ok := mcqDraft(seg.Theme, sentence, term, found, pool, rng); ok {
			drafts = append(drafts, mcq)
		}
	}
	return drafts
}

// trueFalseDraft presents the sentence verbatim (true) or with the key
// term swapped for another document term (false).
func trueFalseDraft(theme, sentence string, term extract.Term, found string, pool []extract.Term, rng *rand.Rand) (domain.Draft, bool) {
	truth := rng.Intn(2) == 0
	statement := sentence
	if !truth {
		decoys := decoyTerms(term, pool)
		if len(decoys) == 0 {
			truth = true
		} else {
			swap := decoys[rng.Intn(len(decoys))]
			statement = strings.Replace(sentence, found, swap.Surface, 1)
		}
	}
	return domain.Draft{
		Kind:  domain.KindTrueFalse,
		Theme: theme,
		Payload: domain.Payload{
			Statement: statement,
			Truth:     truth,
		},
	}, true
}

// mcqDraft builds a multiple-choice question whose decoys substitute the
// key term with other document terms. Needs at least one decoy to be a
// real question.
func mcqDraft(theme, sentence string, term extract.Term, found string, pool []extract.Term, rng *rand.Rand) (domain.Draft, bool) {
	decoys := decoyTerms(term, pool)
	if len(decoys) == 0 {
		return domain.Draft{}, false
	}
	if len(decoys) > 3 {
		decoys = decoys[:3]
	}

	choices := make([]string, 0, len(decoys)+1)
	for _, d := range decoys {
		choices = append(choices, strings.Replace(sentence, found, d.Surface, 1))
	}
	correct := rng.Intn(len(choices) + 1)
	choices = append(choices[:correct], append([]string{sentence}, choices[correct:]...)...)

	return domain.Draft{
		Kind:  domain.KindMCQ,
		Theme: theme,
		Payload: domain.Payload{
			Prompt:  "Which statement is correct?",
			Choices: choices,
			Correct: correct,
		},
	}, true
}

// decoyTerms returns pool terms usable as substitutes for term, in pool
// order so selection stays deterministic under a seeded rng.
func decoyTerms(term extract.Term, pool []extract.Term) []extract.Term {
	var decoys []extract.Term
	for _, p := range pool {
		if p.Text != term.Text {
			decoys = append(decoys, p)
		}
	}
	return decoys
}

// locateTerm finds the best-ranked key term present in the sentence and
// the exact surface slice it occupies there.
func locateTerm(sentence string, terms []extract.Term) (extract.Term, string, bool) {
	for _, term := range terms {
		if found, ok := locate(sentence, term.Text); ok {
			return term, found, true
		}
	}
	return extract.Term{}, "", false
}

// locate finds a whole-word, case-insensitive occurrence of term (already
// lower-cased) and returns the matching slice of the original sentence.
// The scan walks the original string rune by rune, so case mappings that
// change byte length can never shift the returned slice.
func locate(sentence, term string) (string, bool) {
	n := utf8.RuneCountInString(term)
	if n == 0 {
		return "", false
	}
	for i := 0; i < len(sentence); {
		end := runeEnd(sentence, i, n)
		if end < 0 {
			return "", false
		}
		if boundaryBefore(sentence, i) && boundaryAfter(sentence, end) &&
			strings.ToLower(sentence[i:end]) == term {
			return sentence[i:end], true
		}
		_, size := utf8.DecodeRuneInString(sentence[i:])
		i += size
	}
	return "", false
}

// runeEnd returns the byte offset after n runes starting at i, or -1 when
// fewer than n runes remain.
func runeEnd(s string, i, n int) int {
	for ; n > 0; n-- {
		if i >= len(s) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// contentSeed derives the deterministic rng seed from normalized text.
// Wall-clock time never feeds generation.
func contentSeed(text string) int64 {
	h := fnv.New64a()
	h.Write([]byte(identity.Normalize(text)))
	return int64(h.Sum64())
}

// computeMetrics derives the document-level readability and density
// scores surfaced alongside the drafts.
func computeMetrics(text string, concepts []extract.Concepts) Metrics {
	words := strings.Fields(chunk.Normalize(text))
	if len(words) == 0 {
		return Metrics{}
	}

	// Average sentence length: 18 words or fewer reads comfortably.
	sentences := chunk.SplitSentences(text)
	lengthScore := 1.0
	if len(sentences) > 0 {
		total := 0
		for _, s := range sentences {
			total += len(strings.Fields(s))
		}
		avg := float64(total) / float64(len(sentences))
		if avg > 18 {
			lengthScore = 18 / avg
		}
	}

	// Vocabulary complexity: share of long words.
	long := 0
	for _, w := range words {
		if len([]rune(w)) >= 8 {
			long++
		}
	}
	vocabScore := 1.0 - float64(long)/float64(len(words))

	readability := 0.6*lengthScore + 0.4*vocabScore
	readability = min(1.0, max(0.0, readability))

	distinct := make(map[string]bool)
	for _, c := range concepts {
		for _, term := range c.Terms {
			distinct[term.Text] = true
		}
	}
	density := float64(len(distinct)) / float64(len(words))

	return Metrics{Readability: readability, Density: density}
}
