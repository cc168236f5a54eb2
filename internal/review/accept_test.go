package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amendor47/Studying-coach/internal/domain"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func qa(theme, front, back string) domain.Draft {
	return domain.Draft{
		Kind:    domain.KindQA,
		Theme:   theme,
		Payload: domain.Payload{Front: front, Back: back},
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		draft domain.Draft
		valid bool
	}{
		{
			name:  "valid QA",
			draft: qa("geo", "Paris", "The capital of France."),
			valid: true,
		},
		{
			name:  "QA empty front",
			draft: qa("geo", "  ", "The capital of France."),
			valid: false,
		},
		{
			name:  "QA empty back",
			draft: qa("geo", "Paris", ""),
			valid: false,
		},
		{
			name:  "empty theme",
			draft: qa("", "Paris", "The capital of France."),
			valid: false,
		},
		{
			name: "valid MCQ",
			draft: domain.Draft{Kind: domain.KindMCQ, Theme: "geo", Payload: domain.Payload{
				Prompt: "Which statement is correct?", Choices: []string{"a", "b", "c"}, Correct: 1,
			}},
			valid: true,
		},
		{
			name: "MCQ single choice",
			draft: domain.Draft{Kind: domain.KindMCQ, Theme: "geo", Payload: domain.Payload{
				Prompt: "?", Choices: []string{"a"}, Correct: 0,
			}},
			valid: false,
		},
		{
			name: "MCQ correct index out of range",
			draft: domain.Draft{Kind: domain.KindMCQ, Theme: "geo", Payload: domain.Payload{
				Prompt: "?", Choices: []string{"a", "b"}, Correct: 2,
			}},
			valid: false,
		},
		{
			name: "MCQ duplicate choices",
			draft: domain.Draft{Kind: domain.KindMCQ, Theme: "geo", Payload: domain.Payload{
				Prompt: "?", Choices: []string{"a", "a"}, Correct: 0,
			}},
			valid: false,
		},
		{
			name: "valid TrueFalse",
			draft: domain.Draft{Kind: domain.KindTrueFalse, Theme: "geo", Payload: domain.Payload{
				Statement: "Paris is the capital of France.", Truth: true,
			}},
			valid: true,
		},
		{
			name: "TrueFalse empty statement",
			draft: domain.Draft{Kind: domain.KindTrueFalse, Theme: "geo", Payload: domain.Payload{
				Statement: " ",
			}},
			valid: false,
		},
		{
			name: "valid Cloze",
			draft: domain.Draft{Kind: domain.KindCloze, Theme: "geo", Payload: domain.Payload{
				Text: "____ is the capital of France.", Blanks: []domain.Blank{{Answer: "Paris"}},
			}},
			valid: true,
		},
		{
			name: "Cloze without blanks",
			draft: domain.Draft{Kind: domain.KindCloze, Theme: "geo", Payload: domain.Payload{
				Text: "Paris is the capital of France.",
			}},
			valid: false,
		},
		{
			name: "Cloze marker count mismatch",
			draft: domain.Draft{Kind: domain.KindCloze, Theme: "geo", Payload: domain.Payload{
				Text: "____ is the capital of ____.", Blanks: []domain.Blank{{Answer: "Paris"}},
			}},
			valid: false,
		},
		{
			name: "Cloze empty answer",
			draft: domain.Draft{Kind: domain.KindCloze, Theme: "geo", Payload: domain.Payload{
				Text: "____ is the capital.", Blanks: []domain.Blank{{Answer: " "}},
			}},
			valid: false,
		},
		{
			name:  "unknown kind",
			draft: domain.Draft{Kind: "Essay", Theme: "geo"},
			valid: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.draft)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDraft)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	t.Run("promotes valid drafts", func(t *testing.T) {
		res, err := Accept([]domain.Draft{qa("geo", "Paris", "The capital of France.")}, nil, now)
		require.NoError(t, err)
		require.Len(t, res.Accepted, 1)

		item := res.Accepted[0]
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, domain.StatusAccepted, item.Status)
		assert.Equal(t, now, item.CreatedAt)
		require.NotNil(t, item.SRS)
		assert.Equal(t, 2.5, item.SRS.EaseFactor)
		assert.Zero(t, item.SRS.Repetitions)
		assert.Nil(t, item.SRS.NextReview, "never-reviewed item has no next review")
	})

	t.Run("counts invalid drafts without failing the batch", func(t *testing.T) {
		res, err := Accept([]domain.Draft{
			qa("geo", "Paris", "The capital of France."),
			qa("geo", "", ""),
		}, nil, now)
		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
		assert.Equal(t, 1, res.Rejected)
	})

	t.Run("drops in-batch duplicates", func(t *testing.T) {
		res, err := Accept([]domain.Draft{
			qa("geo", "Paris", "The capital of France."),
			qa("geo", "paris", "The capital of France!"),
		}, nil, now)
		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
		assert.Equal(t, 1, res.Rejected)
	})

	t.Run("drops duplicates of existing items", func(t *testing.T) {
		first, err := Accept([]domain.Draft{qa("geo", "Paris", "The capital of France.")}, nil, now)
		require.NoError(t, err)

		_, err = Accept([]domain.Draft{qa("geo", "Paris", "The capital of France.")}, first.Accepted, now)
		assert.ErrorIs(t, err, ErrNothingUsable)
	})

	t.Run("same text in another theme is not a duplicate", func(t *testing.T) {
		first, err := Accept([]domain.Draft{qa("geo", "Paris", "The capital of France.")}, nil, now)
		require.NoError(t, err)

		res, err := Accept([]domain.Draft{qa("history", "Paris", "The capital of France.")}, first.Accepted, now)
		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
	})

	t.Run("existing drafts do not block acceptance", func(t *testing.T) {
		existing := []domain.StudyItem{{
			ID:      "x",
			Kind:    domain.KindQA,
			Theme:   "geo",
			Status:  domain.StatusDraft,
			Payload: domain.Payload{Front: "Paris", Back: "The capital of France."},
		}}
		res, err := Accept([]domain.Draft{qa("geo", "Paris", "The capital of France.")}, existing, now)
		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
	})

	t.Run("empty batch", func(t *testing.T) {
		res, err := Accept(nil, nil, now)
		assert.ErrorIs(t, err, ErrNothingUsable)
		assert.Empty(t, res.Accepted)
	})
}
