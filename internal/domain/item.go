package domain

import (
	"strings"
	"time"
)

// Kind identifies the shape of a study item's payload.
type Kind string

const (
	KindQA        Kind = "QA"
	KindMCQ       Kind = "MCQ"
	KindTrueFalse Kind = "TrueFalse"
	KindCloze     Kind = "Cloze"
)

// Status is the lifecycle state of a study item. Drafts never enter the
// scheduler; suspended items never enter the due queue.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusAccepted  Status = "accepted"
	StatusMastered  Status = "mastered"
	StatusSuspended Status = "suspended"
)

// BlankMarker is the placeholder a cloze text shows in place of a
// blanked key term.
const BlankMarker = "____"

// Blank is one gap in a cloze text together with the answer that fills it.
type Blank struct {
	Answer string `json:"answer"`
}

// Payload holds the kind-specific content of an item. Only the fields for
// the item's Kind are set; the rest stay zero and are omitted from JSON.
type Payload struct {
	// QA
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`

	// MCQ
	Prompt  string   `json:"prompt,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Correct int      `json:"correct,omitempty"`

	// TrueFalse
	Statement string `json:"statement,omitempty"`
	Truth     bool   `json:"truth,omitempty"`

	// Cloze
	Text   string  `json:"text,omitempty"`
	Blanks []Blank `json:"blanks,omitempty"`
}

// PrimaryText returns the text that identifies a payload of the given kind
// for deduplication. Two items of the same kind and theme whose primary
// texts normalize to the same string are duplicates.
func (p Payload) PrimaryText(kind Kind) string {
	switch kind {
	case KindQA:
		return p.Front + "\n" + p.Back
	case KindMCQ:
		correct := ""
		if p.Correct >= 0 && p.Correct < len(p.Choices) {
			correct = p.Choices[p.Correct]
		}
		return p.Prompt + "\n" + correct
	case KindTrueFalse:
		return p.Statement
	case KindCloze:
		answers := make([]string, 0, len(p.Blanks))
		for _, b := range p.Blanks {
			answers = append(answers, b.Answer)
		}
		return p.Text + "\n" + strings.Join(answers, "\n")
	}
	return ""
}

// SRSState is the per-item memory strength tracked by the scheduler.
// NextReview is nil only while the item has never been reviewed.
type SRSState struct {
	IntervalDays float64    `json:"interval_days"`
	EaseFactor   float64    `json:"ease_factor"`
	Repetitions  int        `json:"repetitions"`
	NextReview   *time.Time `json:"next_review,omitempty"`
}

// Draft is a generated candidate item that has not been accepted yet.
// It carries no ID; identity is assigned at acceptance.
type Draft struct {
	Kind    Kind    `json:"kind"`
	Theme   string  `json:"theme"`
	Payload Payload `json:"payload"`
}

// StudyItem is the unit of review.
type StudyItem struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Theme          string     `json:"theme"`
	Payload        Payload    `json:"payload"`
	Status         Status     `json:"status"`
	SRS            *SRSState  `json:"srs,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// ReviewEvent records a single grading of an item. It is not persisted
// beyond the SRS update it triggers.
type ReviewEvent struct {
	ItemID    string    `json:"item_id"`
	Quality   int       `json:"quality"`
	Timestamp time.Time `json:"timestamp"`
}

// ThemeSummary is a derived per-theme count, recomputed on demand.
type ThemeSummary struct {
	Theme      string `json:"theme"`
	TotalItems int    `json:"total_items"`
	DueCount   int    `json:"due_count"`
}
