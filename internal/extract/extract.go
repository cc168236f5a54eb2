package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Amendor47/Studying-coach/internal/chunk"
)

// stopwords is a small list of function words excluded from keyword
// scoring and not counted as content words.
var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "for": true, "are": true, "was": true, "were": true,
	"has": true, "have": true, "had": true, "into": true, "onto": true,
	"over": true, "under": true, "about": true, "after": true, "before": true,
	"between": true, "through": true, "their": true, "them": true, "they": true,
	"there": true, "these": true, "those": true, "which": true, "while": true,
	"would": true, "could": true, "should": true, "been": true, "being": true,
	"also": true, "such": true, "than": true, "then": true, "when": true,
	"where": true, "what": true, "because": true, "during": true, "each": true,
	"other": true, "some": true, "most": true, "more": true, "very": true,
	"its": true, "his": true, "her": true, "our": true, "your": true,
	"not": true, "but": true, "can": true, "may": true, "will": true,
	"all": true, "any": true, "one": true, "two": true, "it": true,
	"is": true, "in": true, "on": true, "of": true, "to": true, "as": true,
	"at": true, "by": true, "an": true, "or": true, "be": true, "a": true,
}

// Config bounds extraction per segment. Zero values fall back to the
// defaults, keeping output bounded on large inputs.
type Config struct {
	MaxTerms     int     // ranked key terms kept per segment
	MaxSentences int     // factual sentences kept per segment
	MinTokenLen  int     // shorter tokens are never key terms
	MinDensity   float64 // content-word ratio a factual sentence must reach
}

// DefaultConfig returns the extraction bounds used when none are set.
func DefaultConfig() Config {
	return Config{MaxTerms: 5, MaxSentences: 4, MinTokenLen: 4, MinDensity: 0.5}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxTerms <= 0 {
		c.MaxTerms = def.MaxTerms
	}
	if c.MaxSentences <= 0 {
		c.MaxSentences = def.MaxSentences
	}
	if c.MinTokenLen <= 0 {
		c.MinTokenLen = def.MinTokenLen
	}
	if c.MinDensity <= 0 {
		c.MinDensity = def.MinDensity
	}
	return c
}

// Term is a ranked key term. Surface preserves the source casing so the
// term can be located and blanked inside its sentences.
type Term struct {
	Text    string // lower-cased
	Surface string
	Score   float64
}

// Concepts holds the generation seeds derived from one segment.
type Concepts struct {
	Terms     []Term
	Sentences []string // factual sentences, in source order
}

// token is one word occurrence inside a segment.
type token struct {
	text    string // lower-cased
	surface string
	pos     int // word index in the segment
}

// tokenize splits text into word tokens, keeping letters and digits.
func tokenize(text string) []token {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]token, 0, len(fields))
	for i, f := range fields {
		tokens = append(tokens, token{text: strings.ToLower(f), surface: f, pos: i})
	}
	return tokens
}

func isCapitalized(surface string) bool {
	for _, r := range surface {
		return unicode.IsUpper(r)
	}
	return false
}

// Document extracts concepts for every segment of one document. Document
// scope matters: terms repeated across segments score higher, and the
// caller needs segment-aligned output for draft generation.
func Document(segments []chunk.Segment, cfg Config) []Concepts {
	cfg = cfg.withDefaults()

	// First pass: in how many segments does each token appear.
	segmentCount := make(map[string]int)
	segTokens := make([][]token, len(segments))
	for i, seg := range segments {
		segTokens[i] = tokenize(seg.Text)
		seen := make(map[string]bool)
		for _, tok := range segTokens[i] {
			if !seen[tok.text] {
				seen[tok.text] = true
				segmentCount[tok.text]++
			}
		}
	}

	concepts := make([]Concepts, len(segments))
	for i, seg := range segments {
		concepts[i] = Concepts{
			Terms:     terms(segTokens[i], segmentCount, cfg),
			Sentences: factualSentences(seg.Text, cfg),
		}
	}
	return concepts
}

// terms scores and ranks the candidate key terms of one segment.
// Frequency carries the score; capitalization in source, repetition
// across segments and early position add weight. Ties break by earliest
// position, then alphabetically, so ranking is deterministic.
func terms(tokens []token, segmentCount map[string]int, cfg Config) []Term {
	type stat struct {
		freq        int
		firstPos    int
		surface     string
		capitalized bool
	}
	stats := make(map[string]*stat)
	for _, tok := range tokens {
		if len([]rune(tok.text)) < cfg.MinTokenLen || stopwords[tok.text] {
			continue
		}
		s, ok := stats[tok.text]
		if !ok {
			s = &stat{firstPos: tok.pos, surface: tok.surface}
			stats[tok.text] = s
		}
		s.freq++
		// Keep a capitalized surface form if the source ever uses one,
		// except at position 0 where casing is just sentence style.
		if tok.pos > 0 && isCapitalized(tok.surface) {
			s.capitalized = true
			s.surface = tok.surface
		}
	}

	ranked := make([]Term, 0, len(stats))
	for text, s := range stats {
		score := float64(s.freq)
		score += 1.0 / (1.0 + float64(s.firstPos)/8.0)
		if s.capitalized {
			score += 1.0
		}
		if segmentCount[text] > 1 {
			score += 0.75
		}
		ranked = append(ranked, Term{Text: text, Surface: s.surface, Score: score})
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		pa, pb := stats[ranked[a].Text].firstPos, stats[ranked[b].Text].firstPos
		if pa != pb {
			return pa < pb
		}
		return ranked[a].Text < ranked[b].Text
	})

	if len(ranked) > cfg.MaxTerms {
		ranked = ranked[:cfg.MaxTerms]
	}
	return ranked
}

// factualSentences keeps, in source order, sentences dense enough in
// content words to be worth turning into study items.
func factualSentences(text string, cfg Config) []string {
	var kept []string
	for _, sent := range chunk.SplitSentences(text) {
		tokens := tokenize(sent)
		if len(tokens) < 4 {
			continue
		}
		content := 0
		for _, tok := range tokens {
			if !stopwords[tok.text] && len([]rune(tok.text)) >= 3 {
				content++
			}
		}
		if float64(content)/float64(len(tokens)) >= cfg.MinDensity {
			kept = append(kept, sent)
		}
		if len(kept) == cfg.MaxSentences {
			break
		}
	}
	return kept
}

// IsStopword reports whether a lower-cased token is a function word.
func IsStopword(token string) bool {
	return stopwords[token]
}

// ContentRatio returns the ratio of content words to total words of a
// sentence, zero when the sentence has no words.
func ContentRatio(sentence string) float64 {
	tokens := tokenize(sentence)
	if len(tokens) == 0 {
		return 0
	}
	content := 0
	for _, tok := range tokens {
		if !stopwords[tok.text] && len([]rune(tok.text)) >= 3 {
			content++
		}
	}
	return float64(content) / float64(len(tokens))
}
