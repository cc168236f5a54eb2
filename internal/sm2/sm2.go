// Package sm2 implements the SM-2 spaced repetition algorithm over
// study-item SRS state. Apply is a pure function of (state, quality,
// now); there is no hidden state.
package sm2

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Amendor47/Studying-coach/internal/domain"
)

// Quality is the review grade, 0 (blackout) through 5 (perfect recall).
// Anything below 3 counts as a failure and restarts learning.
const (
	QualityMin = 0
	QualityMax = 5
)

// MinEase is the hard floor of the ease factor.
const MinEase = 1.3

// DefaultEase is the ease factor a freshly accepted item starts with.
const DefaultEase = 2.5

var (
	// ErrInvalidQuality reports a quality outside [0,5]. The value is
	// rejected, never clamped: clamping would silently corrupt the
	// memory model.
	ErrInvalidQuality = errors.New("sm2: quality out of range")

	// ErrNotSchedulable reports a review of an item that carries no SRS
	// state, i.e. a draft.
	ErrNotSchedulable = errors.New("sm2: item has no srs state")
)

// NewState returns the SRS state assigned at acceptance time. NextReview
// stays nil until the first review.
func NewState() domain.SRSState {
	return domain.SRSState{EaseFactor: DefaultEase}
}

// Apply computes the next SRS state from a review.
//
// Failure (quality < 3) resets repetitions and restarts with a one day
// interval. Success advances through the 1, 6, ceil(interval*ease)
// progression. The ease factor update is applied on every review, pass
// or fail, computed from the pre-update ease factor, and never drops
// below MinEase.
func Apply(state domain.SRSState, quality int, now time.Time) (domain.SRSState, error) {
	if quality < QualityMin || quality > QualityMax {
		return domain.SRSState{}, fmt.Errorf("%w: %d", ErrInvalidQuality, quality)
	}

	next := state
	if quality < 3 {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = math.Ceil(state.IntervalDays * state.EaseFactor)
		}
	}

	q := float64(5 - quality)
	next.EaseFactor = math.Max(MinEase, state.EaseFactor+(0.1-q*(0.08+q*0.02)))

	due := now.AddDate(0, 0, int(next.IntervalDays))
	next.NextReview = &due

	return next, nil
}

// Review applies a graded review to an item, returning the updated item.
// Drafts are rejected: they never enter the scheduler.
func Review(item domain.StudyItem, quality int, now time.Time) (domain.StudyItem, error) {
	if item.Status == domain.StatusDraft || item.SRS == nil {
		return domain.StudyItem{}, fmt.Errorf("%w: %s", ErrNotSchedulable, item.ID)
	}

	next, err := Apply(*item.SRS, quality, now)
	if err != nil {
		return domain.StudyItem{}, err
	}

	item.SRS = &next
	reviewed := now
	item.LastReviewedAt = &reviewed
	return item, nil
}
