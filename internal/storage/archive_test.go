package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

func newTestArchiver(t *testing.T) (*Archiver, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.StorageConfig{
		ArchiveDir: filepath.Join(dir, "archives"),
		ReadmePath: filepath.Join(dir, "README.md"),
	}
	return NewArchiver(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func TestArchiverWriteDaily(t *testing.T) {
	archiver, dir := newTestArchiver(t)
	day := time.Date(2025, 10, 21, 0, 0, 0, 0, time.Local)

	items := []*trending.Item{
		{Title: "话题A", Hot: 52000, URL: "https://s.weibo.com/a", Category: "社会"},
		{Title: "话题B"},
	}
	if err := archiver.WriteDaily(day, items); err != nil {
		t.Fatalf("write daily: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "archives", "2025-10-21.md"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "2025-10-21") {
		t.Error("archive missing day header")
	}
	if !strings.Contains(content, "1. [话题A](https://s.weibo.com/a) `52000` · 社会") {
		t.Errorf("unexpected linked line:\n%s", content)
	}
	if !strings.Contains(content, "2. 话题B\n") {
		t.Errorf("unlinked topic should render bare:\n%s", content)
	}
}

func TestArchiverUpdateReadmeReplacesSection(t *testing.T) {
	archiver, dir := newTestArchiver(t)
	readme := filepath.Join(dir, "README.md")
	ts := time.Date(2025, 10, 21, 14, 0, 0, 0, time.Local)

	seed := "# 项目说明\n\n" + readmeBegin + "\n旧内容\n" + readmeEnd + "\n\n尾部文字\n"
	if err := os.WriteFile(readme, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := archiver.UpdateReadme(ts, []*trending.Item{{Title: "话题A", Hot: 1}}); err != nil {
		t.Fatalf("update readme: %v", err)
	}

	data, err := os.ReadFile(readme)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if strings.Contains(content, "旧内容") {
		t.Error("old section content survived the update")
	}
	if !strings.Contains(content, "话题A") {
		t.Error("new section content missing")
	}
	if !strings.HasPrefix(content, "# 项目说明") || !strings.Contains(content, "尾部文字") {
		t.Error("text outside the markers was disturbed")
	}
	if strings.Count(content, readmeBegin) != 1 || strings.Count(content, readmeEnd) != 1 {
		t.Error("marker pair duplicated or lost")
	}
}

func TestArchiverUpdateReadmeAppendsWhenMissing(t *testing.T) {
	archiver, dir := newTestArchiver(t)
	ts := time.Date(2025, 10, 21, 14, 0, 0, 0, time.Local)

	if err := archiver.UpdateReadme(ts, []*trending.Item{{Title: "话题A"}}); err != nil {
		t.Fatalf("update readme: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), readmeBegin) || !strings.Contains(string(data), "话题A") {
		t.Errorf("section not appended to fresh readme:\n%s", data)
	}
}
