package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	historyFileLayout   = "2006-01-02_150405"
	defaultHistoryLimit = 10
)

// HistoryStore keeps one JSON file per run in a directory. It assumes a
// single writer.
type HistoryStore struct {
	dir string
	now func() time.Time
}

// NewHistoryStore creates a store rooted at dir
func NewHistoryStore(dir string) *HistoryStore {
	return &HistoryStore{dir: dir, now: time.Now}
}

// Save writes the digest as YYYY-MM-DD_HHMMSS.json and returns its path
func (h *HistoryStore) Save(digest Digest, postsCount int) (string, error) {
	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return "", fmt.Errorf("creating history directory: %w", err)
	}

	timestamp := h.now()
	filename := filepath.Join(h.dir, timestamp.Format(historyFileLayout)+".json")

	record := HistoryRecord{
		Timestamp:  timestamp.Format(time.RFC3339),
		PostsCount: postsCount,
		Sections:   digest,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("encoding history record: %w", err)
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing history record: %w", err)
	}
	return filename, nil
}

// List returns up to limit records, most recent first
func (h *HistoryStore) List(limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	files, err := filepath.Glob(filepath.Join(h.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	if len(files) > limit {
		files = files[:limit]
	}

	records := make([]HistoryRecord, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		var record HistoryRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		record.Filename = filepath.Base(file)
		records = append(records, record)
	}
	return records, nil
}
