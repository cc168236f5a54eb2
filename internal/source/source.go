package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Amendor47/Studying-coach/internal/draft"
	"github.com/Amendor47/Studying-coach/internal/gitsource"
	"github.com/Amendor47/Studying-coach/internal/storage"
)

// Syncer reconciles registered note sources into the draft store.
type Syncer struct {
	db       *storage.DB
	cfg      draft.Config
	reposDir string
}

// Stats summarises one reconciliation pass.
type Stats struct {
	FilesScanned int
	FilesChanged int
	FilesSkipped int
	DraftsSaved  int
	Errors       int
}

func New(db *storage.DB, cfg draft.Config, reposDir string) *Syncer {
	return &Syncer{db: db, cfg: cfg, reposDir: reposDir}
}

// SyncAll iterates over all registered sources and reconciles each one.
// Git sources are cloned or pulled into the repos directory first, then
// scanned like a local directory.
func (s *Syncer) SyncAll(now time.Time) (Stats, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with 'sources add <path/or/url.git>'")
		return Stats{}, nil
	}

	if err := os.MkdirAll(s.reposDir, os.ModePerm); err != nil {
		return Stats{}, fmt.Errorf("failed to create repos directory: %w", err)
	}

	var total Stats
	for _, src := range sources {
		slog.Info("Syncing source", "id", src.ID, "type", src.Type, "path", src.Path)

		scanPath := src.Path
		if src.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(s.reposDir, src.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", src.Path, "error", err)
				total.Errors++
				continue
			}
			if err := gitsource.Sync(src.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", src.Path, "error", err)
				total.Errors++
				continue
			}
			scanPath = localRepoPath
		}

		stats, err := s.IngestPath(scanPath, now)
		if err != nil {
			slog.Error("Error scanning source", "path", scanPath, "error", err)
			total.Errors++
			continue
		}
		total.FilesScanned += stats.FilesScanned
		total.FilesChanged += stats.FilesChanged
		total.FilesSkipped += stats.FilesSkipped
		total.DraftsSaved += stats.DraftsSaved
		total.Errors += stats.Errors

		if err := s.db.UpdateSourceLastScanned(src.ID); err != nil {
			slog.Warn("Failed to update last scanned for source", "source_id", src.ID, "error", err)
		}
	}
	slog.Info("Sync process complete.",
		"files_scanned", total.FilesScanned,
		"files_changed", total.FilesChanged,
		"drafts_saved", total.DraftsSaved,
		"errors", total.Errors,
	)
	return total, nil
}

// IngestPath scans a file or directory for notes and stores the drafts
// generated from any file whose content changed since the last scan.
func (s *Syncer) IngestPath(path string, now time.Time) (Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var stats Stats
	if !info.IsDir() {
		if err := s.ingestFile(path, now, &stats); err != nil {
			return stats, err
		}
		return stats, nil
	}

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isNoteFile(d.Name()) {
			return nil
		}
		if err := s.ingestFile(p, now, &stats); err != nil {
			slog.Error("Error ingesting file", "path", p, "error", err)
			stats.Errors++
		}
		return nil
	})
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", path, walkErr)
	}
	return stats, nil
}

func (s *Syncer) ingestFile(path string, now time.Time, stats *Stats) error {
	stats.FilesScanned++

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	hash := contentHash(content)

	existing, err := s.db.FindDocumentByPath(path)
	if err != nil {
		return fmt.Errorf("failed to look up document %s: %w", path, err)
	}
	if existing != nil && existing.ContentHash == hash {
		stats.FilesSkipped++
		return nil
	}
	stats.FilesChanged++

	result := draft.Generate(string(content), s.cfg)
	if result.Reason != "" {
		slog.Info("No drafts generated", "path", path, "reason", result.Reason)
	}
	if len(result.Drafts) > 0 {
		if err := s.db.SaveDrafts(result.Drafts, now); err != nil {
			return fmt.Errorf("failed to save drafts for %s: %w", path, err)
		}
		stats.DraftsSaved += len(result.Drafts)
		slog.Info("New drafts stored", "path", path, "count", len(result.Drafts))
	}

	doc := storage.Document{
		Path:        path,
		ContentHash: hash,
		Readability: result.Metrics.Readability,
		Density:     result.Metrics.Density,
		IngestedAt:  now,
	}
	if err := s.db.UpsertDocument(doc); err != nil {
		return fmt.Errorf("failed to record document %s: %w", path, err)
	}
	return nil
}

func isNoteFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".txt")
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
