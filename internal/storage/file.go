package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

// ErrNoSnapshot is returned by LatestSnapshot when neither today nor
// yesterday has any persisted snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

// envelope is the on-disk document shape: hourly files and the daily
// summary both carry it, so any of them can be served to clients as-is.
type envelope struct {
	Success    bool             `json:"success"`
	UpdateTime string           `json:"update_time"`
	Data       []*trending.Item `json:"data"`
}

// FileStore lays results out as <output>/<YYYY-MM-DD>/<HH>.json per
// snapshot plus a summary.json holding the day's merged aggregate.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a file-backed store rooted at cfg.OutputDir.
func NewFileStore(cfg *config.StorageConfig, logger *slog.Logger) *FileStore {
	return &FileStore{dir: cfg.OutputDir, logger: logger.With("component", "file_store")}
}

func (s *FileStore) SaveHourly(_ context.Context, ts time.Time, items []*trending.Item) error {
	day := ts.Format(DayLayout)
	path := filepath.Join(s.dir, day, ts.Format("15")+".json")
	if err := writeEnvelope(path, ts, items); err != nil {
		return fmt.Errorf("save hourly snapshot: %w", err)
	}
	s.logger.Info("hourly snapshot saved", "path", path, "items", len(items))
	return nil
}

func (s *FileStore) SaveSummary(_ context.Context, day time.Time, items []*trending.Item) error {
	path := filepath.Join(s.dir, day.Format(DayLayout), "summary.json")
	if err := writeEnvelope(path, time.Now(), items); err != nil {
		return fmt.Errorf("save daily summary: %w", err)
	}
	s.logger.Info("daily summary saved", "path", path, "items", len(items))
	return nil
}

func (s *FileStore) LoadSummary(_ context.Context, day time.Time) ([]*trending.Item, error) {
	path := filepath.Join(s.dir, day.Format(DayLayout), "summary.json")
	env, err := readEnvelope(path)
	if err != nil {
		if !os.IsNotExist(err) {
			// A corrupt summary is replaced on the next save; starting from
			// an empty prior only costs carried-over topics.
			s.logger.Warn("stored summary unreadable, starting empty", "path", path, "error", err)
		}
		return nil, nil
	}
	return env.Data, nil
}

func (s *FileStore) LatestSnapshot(_ context.Context) (*Snapshot, error) {
	now := time.Now()
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		dir := filepath.Join(s.dir, day.Format(DayLayout))
		hour, ok := latestHourFile(dir)
		if !ok {
			continue
		}
		env, err := readEnvelope(filepath.Join(dir, hour+".json"))
		if err != nil {
			s.logger.Warn("latest snapshot unreadable", "dir", dir, "hour", hour, "error", err)
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, env.UpdateTime, time.Local)
		if err != nil {
			ts = day
		}
		return &Snapshot{UpdateTime: ts, Items: env.Data}, nil
	}
	return nil, ErrNoSnapshot
}

func (s *FileStore) Close(context.Context) error { return nil }

// latestHourFile returns the highest-numbered hour file in a day directory.
func latestHourFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var hours []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		stem := name[:len(name)-len(".json")]
		if _, err := strconv.Atoi(stem); err != nil {
			continue
		}
		hours = append(hours, stem)
	}
	if len(hours) == 0 {
		return "", false
	}
	sort.Slice(hours, func(i, j int) bool {
		a, _ := strconv.Atoi(hours[i])
		b, _ := strconv.Atoi(hours[j])
		return a > b
	})
	return hours[0], true
}

func writeEnvelope(path string, ts time.Time, items []*trending.Item) error {
	if items == nil {
		items = []*trending.Item{}
	}
	env := envelope{
		Success:    true,
		UpdateTime: ts.Format(TimestampLayout),
		Data:       items,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readEnvelope(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
