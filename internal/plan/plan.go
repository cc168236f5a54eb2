// Package plan selects and orders the items due for review. It is
// read-only over its inputs: calling it repeatedly with the same store
// snapshot and clock yields the same queue and no side effects.
package plan

import (
	"sort"
	"time"

	"github.com/Amendor47/Studying-coach/internal/domain"
)

// IsDue reports whether an item is eligible for review at the given
// time. An item that has never been reviewed (nil NextReview) is due
// immediately.
func IsDue(item domain.StudyItem, now time.Time) bool {
	if item.Status != domain.StatusAccepted || item.SRS == nil {
		return false
	}
	return item.SRS.NextReview == nil || !item.SRS.NextReview.After(now)
}

// DueQueue builds the ordered review queue from a snapshot of all items.
//
// Only accepted items participate; drafts, suspended and mastered items
// are excluded. Due items are grouped by theme and interleaved
// round-robin across themes sorted by name, one item per theme per
// round, so a session never dwells on one topic while others wait.
// Within a theme, items are ordered oldest NextReview first (never
// reviewed counts as oldest), ties broken by ID. The result is a
// deterministic total order for a given snapshot and clock.
func DueQueue(items []domain.StudyItem, now time.Time) []domain.StudyItem {
	byTheme := make(map[string][]domain.StudyItem)
	for _, item := range items {
		if IsDue(item, now) {
			byTheme[item.Theme] = append(byTheme[item.Theme], item)
		}
	}
	if len(byTheme) == 0 {
		return nil
	}

	themes := make([]string, 0, len(byTheme))
	for theme, group := range byTheme {
		themes = append(themes, theme)
		sort.Slice(group, func(a, b int) bool {
			ta, tb := reviewTime(group[a]), reviewTime(group[b])
			if !ta.Equal(tb) {
				return ta.Before(tb)
			}
			return group[a].ID < group[b].ID
		})
	}
	sort.Strings(themes)

	var queue []domain.StudyItem
	for {
		emitted := false
		for _, theme := range themes {
			group := byTheme[theme]
			if len(group) == 0 {
				continue
			}
			queue = append(queue, group[0])
			byTheme[theme] = group[1:]
			emitted = true
		}
		if !emitted {
			return queue
		}
	}
}

// reviewTime orders items within a theme. Never-reviewed items sort
// before everything that has a scheduled review.
func reviewTime(item domain.StudyItem) time.Time {
	if item.SRS == nil || item.SRS.NextReview == nil {
		return time.Time{}
	}
	return *item.SRS.NextReview
}

// RecallPrompt returns the front side of an item, the part shown before
// the learner answers. Used to emit a due queue as self-test prompts.
func RecallPrompt(item domain.StudyItem) string {
	switch item.Kind {
	case domain.KindQA:
		return item.Payload.Front
	case domain.KindMCQ:
		return item.Payload.Prompt
	case domain.KindTrueFalse:
		return item.Payload.Statement
	case domain.KindCloze:
		return item.Payload.Text
	}
	return ""
}
