package chunk

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTheme is assigned to segments that appear before any heading.
const DefaultTheme = "General"

// Config bounds segmentation. Zero values fall back to the defaults.
type Config struct {
	// MinWords: text shorter than this is returned as a single segment.
	MinWords int
	// MaxWords: paragraphs longer than this are windowed at sentence
	// boundaries into pieces of at most MaxWords words.
	MaxWords int
}

// DefaultConfig returns the segmentation bounds used when none are set.
func DefaultConfig() Config {
	return Config{MinWords: 12, MaxWords: 180}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinWords <= 0 {
		c.MinWords = def.MinWords
	}
	if c.MaxWords <= 0 {
		c.MaxWords = def.MaxWords
	}
	return c
}

// Segment is one coherent idea unit of the source text, tagged with the
// theme of the heading it appeared under.
type Segment struct {
	Theme string
	Text  string
}

// headingPattern matches markdown headings and numbered section titles,
// e.g. "## Anatomy" or "3. Anatomy". The marker needs trailing
// whitespace, so a line starting with a decimal number ("3.5 million
// people...") is not a heading.
var headingPattern = regexp.MustCompile(`^(#+|\d+\.)\s+(.+)$`)

// isHeading filters out numbered lines that read as prose: a section
// title does not end in sentence punctuation, while "2. The city grew."
// does.
func isHeading(marker, title string) bool {
	if strings.HasPrefix(marker, "#") {
		return true
	}
	return !strings.ContainsAny(title[len(title)-1:], ".!?")
}

// Normalize applies Unicode NFC and normalizes line endings. Inline
// whitespace is left alone so paragraph structure stays detectable.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}

// Split segments normalized text into ordered, non-overlapping segments.
// Headings delimit themed sections, blank lines delimit paragraphs, and
// oversized paragraphs are windowed without breaking inside a sentence.
// The same input always yields the same segmentation.
func Split(text string, cfg Config) []Segment {
	cfg = cfg.withDefaults()

	text = Normalize(text)
	if text == "" {
		return nil
	}
	if len(strings.Fields(text)) < cfg.MinWords {
		return []Segment{{Theme: DefaultTheme, Text: text}}
	}

	var segments []Segment
	theme := DefaultTheme
	var buf []string

	flush := func() {
		block := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = nil
		if block == "" {
			return
		}
		for _, para := range strings.Split(block, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			for _, window := range window(para, cfg.MaxWords) {
				segments = append(segments, Segment{Theme: theme, Text: window})
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil && isHeading(m[1], m[2]) {
			flush()
			theme = strings.TrimSpace(m[2])
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return segments
}

// window cuts a paragraph into pieces of at most maxWords words, breaking
// only at sentence boundaries. A single sentence longer than maxWords is
// cut at a word boundary, since no sentence boundary is detectable inside
// it.
func window(para string, maxWords int) []string {
	if len(strings.Fields(para)) <= maxWords {
		return []string{para}
	}

	var pieces []string
	var current []string
	count := 0

	emit := func() {
		if len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
			count = 0
		}
	}

	for _, sent := range SplitSentences(para) {
		words := strings.Fields(sent)
		if len(words) > maxWords {
			emit()
			for start := 0; start < len(words); start += maxWords {
				end := min(start+maxWords, len(words))
				pieces = append(pieces, strings.Join(words[start:end], " "))
			}
			continue
		}
		if count+len(words) > maxWords {
			emit()
		}
		current = append(current, sent)
		count += len(words)
	}
	emit()

	return pieces
}

// SplitSentences splits text on terminal punctuation followed by
// whitespace. Returned sentences keep their punctuation and are never
// empty.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		// Consume a run of terminal punctuation ("...", "?!").
		end := i
		for end+1 < len(runes) && (runes[end+1] == '.' || runes[end+1] == '!' || runes[end+1] == '?') {
			end++
		}
		if end+1 >= len(runes) || runes[end+1] == ' ' || runes[end+1] == '\n' || runes[end+1] == '\t' {
			sent := strings.TrimSpace(string(runes[start : end+1]))
			if sent != "" {
				sentences = append(sentences, sent)
			}
			start = end + 1
		}
		i = end
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
