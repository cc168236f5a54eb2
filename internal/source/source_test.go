package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amendor47/Studying-coach/internal/draft"
	"github.com/Amendor47/Studying-coach/internal/storage"
)

const noteText = `# Geography

Paris is the capital of France. Lyon is a major city. The Seine crosses Paris from east to west.

# Chemistry

Water is a molecule made of hydrogen and oxygen. Hydrogen is the lightest element known today.`

func newSyncer(t *testing.T) (*Syncer, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, draft.DefaultConfig(), filepath.Join(t.TempDir(), "repos")), db
}

func TestIngestPathGeneratesDrafts(t *testing.T) {
	s, db := newSyncer(t)

	dir := t.TempDir()
	notePath := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notePath, []byte(noteText), 0o644))

	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	stats, err := s.IngestPath(dir, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesChanged)
	assert.Positive(t, stats.DraftsSaved)

	drafts, err := db.ListDrafts()
	require.NoError(t, err)
	assert.Len(t, drafts, stats.DraftsSaved)

	doc, err := db.FindDocumentByPath(notePath)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.NotEmpty(t, doc.ContentHash)
}

func TestIngestPathSkipsUnchangedFiles(t *testing.T) {
	s, _ := newSyncer(t)

	dir := t.TempDir()
	notePath := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notePath, []byte(noteText), 0o644))

	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	_, err := s.IngestPath(dir, now)
	require.NoError(t, err)

	stats, err := s.IngestPath(dir, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Zero(t, stats.FilesChanged)

	require.NoError(t, os.WriteFile(notePath, []byte(noteText+"\n\nOxygen supports combustion in most fuels."), 0o644))
	stats, err = s.IngestPath(dir, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesChanged)
}

func TestIngestPathIgnoresOtherExtensions(t *testing.T) {
	s, _ := newSyncer(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(noteText), 0o644))

	stats, err := s.IngestPath(dir, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
}

func TestIngestPathSingleFile(t *testing.T) {
	s, _ := newSyncer(t)

	notePath := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(notePath, []byte(noteText), 0o644))

	stats, err := s.IngestPath(notePath, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesChanged)
}

func TestSyncAllScansLocalSources(t *testing.T) {
	s, db := newSyncer(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte(noteText), 0o644))
	id, err := db.InsertSource(dir, "local")
	require.NoError(t, err)

	stats, err := s.SyncAll(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)

	src, err := db.FindSourceByPath(dir)
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, id, src.ID)
	assert.True(t, src.LastScanned.Valid)
}

func TestGitURLToLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https url",
			url:  "https://github.com/someone/notes.git",
			want: filepath.Join("repos", "github.com", "someone", "notes"),
		},
		{
			name: "ssh url",
			url:  "git@github.com:someone/notes.git",
			want: filepath.Join("repos", "github.com", "someone", "notes"),
		},
		{
			name:    "garbage",
			url:     "not a url at all",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gitURLToLocalPath("repos", tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
