// Package review turns generated drafts into accepted study items. It
// enforces the structural rules of each item kind and drops duplicates
// against both the current batch and the items already accepted.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/identity"
	"github.com/Amendor47/Studying-coach/internal/sm2"
)

var (
	// ErrNothingUsable signals that an entire batch was rejected.
	// Individual rejections are counted, never surfaced.
	ErrNothingUsable = errors.New("review: nothing usable extracted")

	// ErrInvalidDraft is the base error behind every structural
	// rejection reason.
	ErrInvalidDraft = errors.New("review: invalid draft")
)

// Validate checks a single draft against the structural rules of its
// kind. The returned error names the violated rule and wraps
// ErrInvalidDraft.
func Validate(d domain.Draft) error {
	if strings.TrimSpace(d.Theme) == "" {
		return fmt.Errorf("%w: empty theme", ErrInvalidDraft)
	}

	switch d.Kind {
	case domain.KindQA:
		if strings.TrimSpace(d.Payload.Front) == "" {
			return fmt.Errorf("%w: QA front is empty", ErrInvalidDraft)
		}
		if strings.TrimSpace(d.Payload.Back) == "" {
			return fmt.Errorf("%w: QA back is empty", ErrInvalidDraft)
		}

	case domain.KindMCQ:
		if len(d.Payload.Choices) < 2 {
			return fmt.Errorf("%w: MCQ needs at least 2 choices, has %d", ErrInvalidDraft, len(d.Payload.Choices))
		}
		if d.Payload.Correct < 0 || d.Payload.Correct >= len(d.Payload.Choices) {
			return fmt.Errorf("%w: MCQ correct index %d out of range", ErrInvalidDraft, d.Payload.Correct)
		}
		seen := make(map[string]bool, len(d.Payload.Choices))
		for _, choice := range d.Payload.Choices {
			if strings.TrimSpace(choice) == "" {
				return fmt.Errorf("%w: MCQ has an empty choice", ErrInvalidDraft)
			}
			if seen[choice] {
				return fmt.Errorf("%w: MCQ has duplicate choice text", ErrInvalidDraft)
			}
			seen[choice] = true
		}

	case domain.KindTrueFalse:
		if strings.TrimSpace(d.Payload.Statement) == "" {
			return fmt.Errorf("%w: TrueFalse statement is empty", ErrInvalidDraft)
		}

	case domain.KindCloze:
		if strings.TrimSpace(d.Payload.Text) == "" {
			return fmt.Errorf("%w: Cloze text is empty", ErrInvalidDraft)
		}
		if len(d.Payload.Blanks) == 0 {
			return fmt.Errorf("%w: Cloze has no blanks", ErrInvalidDraft)
		}
		if strings.Count(d.Payload.Text, domain.BlankMarker) != len(d.Payload.Blanks) {
			return fmt.Errorf("%w: Cloze blank markers do not match blanks", ErrInvalidDraft)
		}
		for _, b := range d.Payload.Blanks {
			if strings.TrimSpace(b.Answer) == "" {
				return fmt.Errorf("%w: Cloze blank has an empty answer", ErrInvalidDraft)
			}
		}

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDraft, d.Kind)
	}

	return nil
}

// Result is the outcome of accepting one batch of drafts.
type Result struct {
	Accepted []domain.StudyItem
	Rejected int // structurally invalid plus duplicates
}

// Accept validates and deduplicates a batch of drafts against a view of
// the existing items, then promotes the survivors: each gets its stable
// ID (the content identity key) and fresh SRS state.
//
// Invalid and duplicate drafts are dropped and counted, never fatal to
// the batch. Only when nothing at all survives does Accept return
// ErrNothingUsable alongside the counts.
func Accept(drafts []domain.Draft, existing []domain.StudyItem, now time.Time) (Result, error) {
	taken := make(map[string]bool, len(existing))
	for _, item := range existing {
		if item.Status != domain.StatusDraft {
			taken[identity.ForItem(item)] = true
		}
	}

	var res Result
	for _, d := range drafts {
		if err := Validate(d); err != nil {
			res.Rejected++
			continue
		}
		key := identity.ForDraft(d)
		if taken[key] {
			res.Rejected++
			continue
		}
		taken[key] = true

		srs := sm2.NewState()
		res.Accepted = append(res.Accepted, domain.StudyItem{
			ID:        key,
			Kind:      d.Kind,
			Theme:     d.Theme,
			Payload:   d.Payload,
			Status:    domain.StatusAccepted,
			SRS:       &srs,
			CreatedAt: now,
		})
	}

	if len(res.Accepted) == 0 {
		return res, ErrNothingUsable
	}
	return res, nil
}
