package storage

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/sm2"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func acceptedItem(id, theme string) domain.StudyItem {
	state := sm2.NewState()
	return domain.StudyItem{
		ID:     id,
		Kind:   domain.KindQA,
		Theme:  theme,
		Payload: domain.Payload{
			Front: "Capital of France",
			Back:  "The capital of France is Paris.",
		},
		Status:    domain.StatusAccepted,
		SRS:       &state,
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestInsertAndGetItem(t *testing.T) {
	db := openTestDB(t)

	item := acceptedItem("item-1", "Geography")
	require.NoError(t, db.InsertItems([]domain.StudyItem{item}))

	got, err := db.GetItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Kind, got.Kind)
	assert.Equal(t, item.Theme, got.Theme)
	assert.Equal(t, item.Payload.Front, got.Payload.Front)
	assert.Equal(t, item.Payload.Back, got.Payload.Back)
	assert.Equal(t, domain.StatusAccepted, got.Status)
	require.NotNil(t, got.SRS)
	assert.Equal(t, 2.5, got.SRS.EaseFactor)
	assert.Zero(t, got.SRS.Repetitions)
	assert.Nil(t, got.SRS.NextReview)
	assert.Nil(t, got.LastReviewedAt)
}

func TestGetItemNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetItem("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItemsOrderedByID(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{
		acceptedItem("b", "Geography"),
		acceptedItem("a", "Chemistry"),
	}))

	items, err := db.ListItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
}

func TestSetStatus(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{acceptedItem("item-1", "Geography")}))
	require.NoError(t, db.SetStatus("item-1", domain.StatusMastered))

	got, err := db.GetItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMastered, got.Status)

	assert.ErrorIs(t, db.SetStatus("missing", domain.StatusSuspended), ErrNotFound)
}

func TestApplyReviewPersistsState(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{acceptedItem("item-1", "Geography")}))

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	updated, err := db.ApplyReview("item-1", 4, now)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SRS.Repetitions)
	assert.Equal(t, 1.0, updated.SRS.IntervalDays)
	require.NotNil(t, updated.SRS.NextReview)

	got, err := db.GetItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, updated.SRS.Repetitions, got.SRS.Repetitions)
	assert.Equal(t, updated.SRS.EaseFactor, got.SRS.EaseFactor)
	require.NotNil(t, got.SRS.NextReview)
	assert.True(t, got.SRS.NextReview.Equal(*updated.SRS.NextReview))
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(now))
}

func TestApplyReviewInvalidQuality(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{acceptedItem("item-1", "Geography")}))

	_, err := db.ApplyReview("item-1", 6, time.Now())
	assert.ErrorIs(t, err, sm2.ErrInvalidQuality)

	got, err := db.GetItem("item-1")
	require.NoError(t, err)
	assert.Zero(t, got.SRS.Repetitions)
}

func TestApplyReviewStaleVersionConflicts(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{acceptedItem("item-1", "Geography")}))
	_, err := db.ApplyReview("item-1", 4, time.Now())
	require.NoError(t, err)

	res, err := db.conn.Exec(`
		UPDATE items SET repetitions = 99, version = version + 1
		WHERE id = ? AND version = ?
	`, "item-1", int64(1))
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyReviewConcurrentSameItem(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{acceptedItem("item-1", "Geography")}))

	const reviewers = 8
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	results := make([]error, reviewers)

	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = db.ApplyReview("item-1", 5, now)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrConflict)
	}
	require.Positive(t, succeeded)

	got, err := db.GetItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, succeeded, got.SRS.Repetitions)
}

func TestApplyReviewConcurrentDistinctItems(t *testing.T) {
	db := openTestDB(t)

	ids := []string{"item-1", "item-2", "item-3", "item-4"}
	items := make([]domain.StudyItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, acceptedItem(id, "Geography"))
	}
	require.NoError(t, db.InsertItems(items))

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	results := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = db.ApplyReview(id, 4, now)
		}(i, id)
	}
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
}

func TestThemeSummaries(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{
		acceptedItem("g1", "Geography"),
		acceptedItem("g2", "Geography"),
		acceptedItem("c1", "Chemistry"),
	}))
	require.NoError(t, db.SetStatus("g2", domain.StatusSuspended))

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	summaries, err := db.ThemeSummaries(now)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "Chemistry", summaries[0].Theme)
	assert.Equal(t, 1, summaries[0].TotalItems)
	assert.Equal(t, 1, summaries[0].DueCount)

	assert.Equal(t, "Geography", summaries[1].Theme)
	assert.Equal(t, 2, summaries[1].TotalItems)
	assert.Equal(t, 1, summaries[1].DueCount)
}

func TestCountByStatus(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertItems([]domain.StudyItem{
		acceptedItem("a", "Geography"),
		acceptedItem("b", "Geography"),
	}))
	require.NoError(t, db.SetStatus("b", domain.StatusMastered))

	counts, err := db.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.StatusAccepted])
	assert.Equal(t, 1, counts[domain.StatusMastered])
}

func TestSaveAndListDrafts(t *testing.T) {
	db := openTestDB(t)

	drafts := []domain.Draft{
		{
			Kind:  domain.KindQA,
			Theme: "Geography",
			Payload: domain.Payload{
				Front: "Paris",
				Back:  "The capital of France is Paris.",
			},
		},
		{
			Kind:  domain.KindTrueFalse,
			Theme: "Geography",
			Payload: domain.Payload{
				Statement: "The capital of France is Paris.",
				Truth:     true,
			},
		},
	}
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveDrafts(drafts, now))

	// Saving the same batch again must not create duplicates.
	require.NoError(t, db.SaveDrafts(drafts, now))

	got, err := db.ListDrafts()
	require.NoError(t, err)
	require.Len(t, got, 2)

	n, err := db.CountDrafts()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.ClearDrafts())
	got, err = db.ListDrafts()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSourceLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertSource("/notes/geo", "local")
	require.NoError(t, err)

	src, err := db.FindSourceByPath("/notes/geo")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, id, src.ID)
	assert.Equal(t, "local", src.Type)
	assert.False(t, src.LastScanned.Valid)

	missing, err := db.FindSourceByPath("/notes/none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.UpdateSourceLastScanned(id))
	src, err = db.FindSourceByPath("/notes/geo")
	require.NoError(t, err)
	assert.True(t, src.LastScanned.Valid)

	all, err := db.GetAllSources()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.DeleteSource(id))
	all, err = db.GetAllSources()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpsertDocument(t *testing.T) {
	db := openTestDB(t)

	doc := Document{
		Path:        "/notes/geo/cities.md",
		ContentHash: "abc123",
		Readability: 0.7,
		Density:     0.1,
		IngestedAt:  time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.UpsertDocument(doc))

	got, err := db.FindDocumentByPath(doc.Path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc123", got.ContentHash)

	doc.ContentHash = "def456"
	doc.Readability = 0.8
	require.NoError(t, db.UpsertDocument(doc))

	got, err = db.FindDocumentByPath(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "def456", got.ContentHash)
	assert.Equal(t, 0.8, got.Readability)

	missing, err := db.FindDocumentByPath("/notes/none.md")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertItemsRejectsMissingSRS(t *testing.T) {
	db := openTestDB(t)

	item := acceptedItem("item-1", "Geography")
	item.SRS = nil
	err := db.InsertItems([]domain.StudyItem{item})
	require.Error(t, err)

	_, err = db.GetItem("item-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
