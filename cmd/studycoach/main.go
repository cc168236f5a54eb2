package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/Amendor47/Studying-coach/internal/config"
	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/plan"
	"github.com/Amendor47/Studying-coach/internal/review"
	"github.com/Amendor47/Studying-coach/internal/source"
	"github.com/Amendor47/Studying-coach/internal/storage"
)

const usage = `studycoach turns course notes into spaced-repetition study items.

Usage:
  studycoach <command> [arguments]

Commands:
  ingest <path>...          generate drafts from note files or directories
  sync                      reconcile all registered sources
  sources add <path|url>    register a local directory or git URL (--git)
  sources list              show registered sources
  sources remove <id>       unregister a source
  drafts                    list pending drafts
  accept                    promote pending drafts into the review pool
  due                       show the interleaved due queue (--limit, --format recall)
  review <id> <quality>     grade an item from 0 to 5
  mark <id> <status>        set an item to accepted, mastered or suspended
  themes                    per-theme totals and due counts
  stats                     item and draft counts by status

Flags:
  --config <path>           config file (default studycoach.yaml)
  --db <path>               database file
  --repos <path>            checkout directory for git sources
`

func main() {
	flags := pflag.NewFlagSet("studycoach", pflag.ExitOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", "studycoach.yaml", "config file path")
	flags.String("db", "studycoach.db", "database file path")
	flags.String("repos", "repos", "checkout directory for git sources")
	limit := flags.Int("limit", 0, "cap the due queue (0 means no cap)")
	format := flags.String("format", "full", "due queue output: full or recall")
	gitSource := flags.Bool("git", false, "register the source as a git URL")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "studycoach: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(cfg.Log.Level),
		TimeFormat: time.Kitchen,
	})))

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	now := time.Now()
	syncer := source.New(db, cfg.DraftConfig(), cfg.Repos)

	switch args[0] {
	case "ingest":
		err = runIngest(syncer, args[1:], now)
	case "sync":
		_, err = syncer.SyncAll(now)
	case "sources":
		err = runSources(db, args[1:], *gitSource)
	case "drafts":
		err = runDrafts(db)
	case "accept":
		err = runAccept(db, now)
	case "due":
		err = runDue(db, now, *limit, *format)
	case "review":
		err = runReview(db, args[1:], now)
	case "mark":
		err = runMark(db, args[1:])
	case "themes":
		err = runThemes(db, now)
	case "stats":
		err = runStats(db)
	default:
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "studycoach: %v\n", err)
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runIngest(syncer *source.Syncer, paths []string, now time.Time) error {
	if len(paths) == 0 {
		return errors.New("ingest needs at least one file or directory")
	}
	var total source.Stats
	for _, path := range paths {
		stats, err := syncer.IngestPath(path, now)
		if err != nil {
			return err
		}
		total.FilesScanned += stats.FilesScanned
		total.FilesChanged += stats.FilesChanged
		total.FilesSkipped += stats.FilesSkipped
		total.DraftsSaved += stats.DraftsSaved
		total.Errors += stats.Errors
	}
	fmt.Printf("Scanned %d files (%d changed, %d unchanged), %d new drafts, %d errors.\n",
		total.FilesScanned, total.FilesChanged, total.FilesSkipped, total.DraftsSaved, total.Errors)
	return nil
}

func runSources(db *storage.DB, args []string, git bool) error {
	if len(args) == 0 {
		return errors.New("sources needs a subcommand: add, list or remove")
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return errors.New("sources add needs a path or git URL")
		}
		sourceType := "local"
		if git {
			sourceType = "git"
		}
		id, err := db.InsertSource(args[1], sourceType)
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s source %d: %s\n", sourceType, id, args[1])
		return nil
	case "list":
		sources, err := db.GetAllSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources registered.")
			return nil
		}
		for _, src := range sources {
			scanned := "never"
			if src.LastScanned.Valid {
				scanned = src.LastScanned.Time.Format(time.RFC3339)
			}
			fmt.Printf("%d\t%s\t%s\tlast scanned %s\n", src.ID, src.Type, src.Path, scanned)
		}
		return nil
	case "remove":
		if len(args) < 2 {
			return errors.New("sources remove needs a source id")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q", args[1])
		}
		if err := db.DeleteSource(id); err != nil {
			return err
		}
		fmt.Printf("Removed source %d.\n", id)
		return nil
	default:
		return fmt.Errorf("unknown sources subcommand %q", args[0])
	}
}

func runDrafts(db *storage.DB) error {
	drafts, err := db.ListDrafts()
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No pending drafts. Run 'ingest' or 'sync' first.")
		return nil
	}
	for _, d := range drafts {
		fmt.Printf("[%s] %s: %s\n", d.Kind, d.Theme, d.Payload.PrimaryText(d.Kind))
	}
	fmt.Printf("%d drafts pending. Run 'accept' to promote them.\n", len(drafts))
	return nil
}

func runAccept(db *storage.DB, now time.Time) error {
	drafts, err := db.ListDrafts()
	if err != nil {
		return err
	}
	existing, err := db.ListItems()
	if err != nil {
		return err
	}

	res, err := review.Accept(drafts, existing, now)
	if err != nil {
		if errors.Is(err, review.ErrNothingUsable) {
			fmt.Printf("Nothing to accept: %d drafts rejected or duplicate.\n", res.Rejected)
			return db.ClearDrafts()
		}
		return err
	}

	if err := db.InsertItems(res.Accepted); err != nil {
		return err
	}
	if err := db.ClearDrafts(); err != nil {
		return err
	}
	fmt.Printf("Accepted %d items, rejected %d.\n", len(res.Accepted), res.Rejected)
	return nil
}

func runDue(db *storage.DB, now time.Time, limit int, format string) error {
	items, err := db.ListItems()
	if err != nil {
		return err
	}
	queue := plan.DueQueue(items, now)
	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	if len(queue) == 0 {
		fmt.Println("Nothing due. Come back later.")
		return nil
	}
	for i, item := range queue {
		if format == "recall" {
			fmt.Printf("%d. [%s] %s\n", i+1, item.Theme, plan.RecallPrompt(item))
			continue
		}
		fmt.Printf("%d. %s  [%s] %s: %s\n", i+1, item.ID[:12], item.Theme, item.Kind, item.Payload.PrimaryText(item.Kind))
	}
	return nil
}

// reviewRetries bounds how often a graded review is retried when a
// concurrent update of the same item wins the version check.
const reviewRetries = 3

func runReview(db *storage.DB, args []string, now time.Time) error {
	if len(args) < 2 {
		return errors.New("review needs an item id and a quality from 0 to 5")
	}
	id, err := resolveItemID(db, args[0])
	if err != nil {
		return err
	}
	quality, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quality %q", args[1])
	}

	var updated domain.StudyItem
	for attempt := 0; ; attempt++ {
		updated, err = db.ApplyReview(id, quality, now)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrConflict) && attempt < reviewRetries {
			slog.Warn("Concurrent review detected, retrying", "id", id, "attempt", attempt+1)
			continue
		}
		return err
	}

	next := "due now"
	if updated.SRS.NextReview != nil {
		next = updated.SRS.NextReview.Format("2006-01-02")
	}
	fmt.Printf("Reviewed %s: interval %.0f days, ease %.2f, next review %s.\n",
		id[:12], updated.SRS.IntervalDays, updated.SRS.EaseFactor, next)
	return nil
}

func runMark(db *storage.DB, args []string) error {
	if len(args) < 2 {
		return errors.New("mark needs an item id and a status")
	}
	id, err := resolveItemID(db, args[0])
	if err != nil {
		return err
	}
	status := domain.Status(args[1])
	switch status {
	case domain.StatusAccepted, domain.StatusMastered, domain.StatusSuspended:
	default:
		return fmt.Errorf("invalid status %q: use accepted, mastered or suspended", args[1])
	}
	if err := db.SetStatus(id, status); err != nil {
		return err
	}
	fmt.Printf("Marked %s as %s.\n", id[:12], status)
	return nil
}

func runThemes(db *storage.DB, now time.Time) error {
	summaries, err := db.ThemeSummaries(now)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No items yet.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%-24s %d items, %d due\n", s.Theme, s.TotalItems, s.DueCount)
	}
	return nil
}

func runStats(db *storage.DB) error {
	counts, err := db.CountByStatus()
	if err != nil {
		return err
	}
	pending, err := db.CountDrafts()
	if err != nil {
		return err
	}
	for _, status := range []domain.Status{domain.StatusAccepted, domain.StatusMastered, domain.StatusSuspended} {
		fmt.Printf("%-10s %d\n", status, counts[status])
	}
	fmt.Printf("%-10s %d\n", "drafts", pending)
	return nil
}

// resolveItemID accepts a full 64 hex char id or an unambiguous prefix.
func resolveItemID(db *storage.DB, ref string) (string, error) {
	if len(ref) == 64 {
		return ref, nil
	}
	items, err := db.ListItems()
	if err != nil {
		return "", err
	}
	var match string
	for _, item := range items {
		if strings.HasPrefix(item.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("item id prefix %q is ambiguous", ref)
			}
			match = item.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no item matches id %q", ref)
	}
	return match, nil
}
