package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

// README markers delimiting the auto-maintained section.
const (
	readmeBegin = "<!-- hotsearch:begin -->"
	readmeEnd   = "<!-- hotsearch:end -->"
)

// readmeTopN caps how many topics the README section shows.
const readmeTopN = 20

// Archiver maintains the human-readable mirror of the daily aggregate:
// a per-day markdown file plus an auto-updated README section.
type Archiver struct {
	archiveDir string
	readmePath string
	logger     *slog.Logger
}

// NewArchiver creates an Archiver. Either path may be empty to disable
// that output.
func NewArchiver(cfg *config.StorageConfig, logger *slog.Logger) *Archiver {
	return &Archiver{
		archiveDir: cfg.ArchiveDir,
		readmePath: cfg.ReadmePath,
		logger:     logger.With("component", "archive"),
	}
}

// WriteDaily renders the day's aggregate as <archive>/<YYYY-MM-DD>.md,
// replacing any previous rendering.
func (a *Archiver) WriteDaily(day time.Time, items []*trending.Item) error {
	if a.archiveDir == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 微博热搜 · %s\n\n", day.Format(DayLayout))
	fmt.Fprintf(&b, "共 %d 条话题，按最高热度排序。\n\n", len(items))
	for i, it := range items {
		writeTopicLine(&b, i+1, it)
	}

	path := filepath.Join(a.archiveDir, day.Format(DayLayout)+".md")
	if err := writeFileAtomic(path, []byte(b.String())); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	a.logger.Info("daily archive written", "path", path, "items", len(items))
	return nil
}

// UpdateReadme rewrites the marker-delimited section of the README with
// the current top topics. A README without markers gets the section
// appended.
func (a *Archiver) UpdateReadme(ts time.Time, items []*trending.Item) error {
	if a.readmePath == "" {
		return nil
	}

	top := items
	if len(top) > readmeTopN {
		top = top[:readmeTopN]
	}

	var b strings.Builder
	b.WriteString(readmeBegin + "\n")
	fmt.Fprintf(&b, "## 当前热搜（更新于 %s）\n\n", ts.Format(TimestampLayout))
	for i, it := range top {
		writeTopicLine(&b, i+1, it)
	}
	b.WriteString(readmeEnd)
	section := b.String()

	existing, err := os.ReadFile(a.readmePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read readme: %w", err)
	}

	content := string(existing)
	begin := strings.Index(content, readmeBegin)
	end := strings.Index(content, readmeEnd)
	if begin >= 0 && end > begin {
		content = content[:begin] + section + content[end+len(readmeEnd):]
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + section + "\n"
	}

	if err := writeFileAtomic(a.readmePath, []byte(content)); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}
	a.logger.Info("readme updated", "path", a.readmePath, "items", len(top))
	return nil
}

func writeTopicLine(b *strings.Builder, rank int, it *trending.Item) {
	label := it.Title
	if it.URL != "" {
		label = fmt.Sprintf("[%s](%s)", it.Title, it.URL)
	}
	fmt.Fprintf(b, "%d. %s", rank, label)
	if it.Hot > 0 {
		fmt.Fprintf(b, " `%d`", it.Hot)
	}
	if it.Category != "" {
		fmt.Fprintf(b, " · %s", it.Category)
	}
	b.WriteString("\n")
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
