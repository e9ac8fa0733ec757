// Package knowledge is a small file-backed store for research material that
// accumulates across runs: analyzed source papers, notes, reusable
// citations. One JSON file per entry.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Entry is one stored item.
type Entry struct {
	ID           string          `json:"id"`
	Topic        string          `json:"topic"`
	Content      json.RawMessage `json:"content"`
	CreatedAt    time.Time       `json:"created_at"`
	LastModified time.Time       `json:"last_modified"`
}

// Base is a thread-safe entry store rooted at one directory.
type Base struct {
	mu      sync.Mutex
	dir     string
	entries map[string]*Entry
}

// Open loads any existing entries from dir, creating it if needed.
func Open(dir string) (*Base, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}
	b := &Base{dir: dir, entries: make(map[string]*Entry)}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil || e.ID == "" {
			continue
		}
		b.entries[e.ID] = &e
	}
	return b, nil
}

// Add stores a new entry under a topic and returns its ID.
func (b *Base) Add(topic string, content any) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}
	now := time.Now()
	e := &Entry{
		ID:           fmt.Sprintf("%s_%s", slug(topic), now.Format("20060102_150405.000")),
		Topic:        topic,
		Content:      raw,
		CreatedAt:    now,
		LastModified: now,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.ID] = e
	return e.ID, b.persist(e)
}

// Get returns an entry by ID, or nil.
func (b *Base) Get(id string) *Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[id]
}

// Update replaces an entry's content. Returns false if the ID is unknown.
func (b *Base) Update(id string, content any) (bool, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return false, fmt.Errorf("marshal content: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return false, nil
	}
	e.Content = raw
	e.LastModified = time.Now()
	return true, b.persist(e)
}

// Search returns entries whose topic or content contains the query,
// case-insensitively, ordered by creation time.
func (b *Base) Search(query string) []*Entry {
	q := strings.ToLower(strings.TrimSpace(query))

	b.mu.Lock()
	defer b.mu.Unlock()
	var hits []*Entry
	for _, e := range b.entries {
		if q == "" ||
			strings.Contains(strings.ToLower(e.Topic), q) ||
			strings.Contains(strings.ToLower(string(e.Content)), q) {
			hits = append(hits, e)
		}
	}
	sortEntries(hits)
	return hits
}

func sortEntries(entries []*Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].CreatedAt.Before(entries[j-1].CreatedAt); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func (b *Base) persist(e *Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(b.dir, e.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return os.Rename(tmp, path)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "entry"
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}
