// Package filestore persists entity collections as JSON documents on disk.
// It is the durable default storage engine: every mutation is flushed with
// an atomic replace before the call returns, and records written by older
// schema versions still load because decoding tolerates unknown fields.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// record pairs a stored document with its insertion sequence so listings
// keep a stable order across reloads.
type record struct {
	Seq  int64           `json:"seq"`
	Body json.RawMessage `json:"body"`
}

// collection is one keyed JSON file. All operations are serialized by a
// per-collection mutex, which makes each update atomic with respect to
// concurrent stage workers.
type collection struct {
	path string

	mu      sync.Mutex
	nextSeq int64
	records map[string]record
}

func openCollection(path string) (*collection, error) {
	c := &collection{path: path, records: make(map[string]record)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, rec := range c.records {
		if rec.Seq >= c.nextSeq {
			c.nextSeq = rec.Seq + 1
		}
	}
	return c, nil
}

// flush writes the whole collection to a temp file and renames it into
// place, so readers never observe a partial write.
func (c *collection) flush() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *collection) put(id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		rec = record{Seq: c.nextSeq}
		c.nextSeq++
	}
	rec.Body = body
	c.records[id] = rec
	return c.flush()
}

func (c *collection) get(id string, out any) (bool, error) {
	c.mu.Lock()
	rec, ok := c.records[id]
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(rec.Body, out)
}

func (c *collection) delete(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return false, nil
	}
	delete(c.records, id)
	return true, c.flush()
}

// all invokes fn for every record body in insertion order.
func (c *collection) all(fn func(body json.RawMessage) error) error {
	c.mu.Lock()
	ordered := make([]record, 0, len(c.records))
	for _, rec := range c.records {
		ordered = append(ordered, rec)
	}
	c.mu.Unlock()

	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Seq < ordered[j-1].Seq; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, rec := range ordered {
		if err := fn(rec.Body); err != nil {
			return err
		}
	}
	return nil
}

// Store bundles the file-backed collections under one data directory.
type Store struct {
	Tasks      *collection
	Media      *collection
	Voices     *collection
	Courseware *collection
}

// Open creates the data directory and loads existing collections.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{}
	for _, spec := range []struct {
		name string
		dst  **collection
	}{
		{"tasks.json", &s.Tasks},
		{"media.json", &s.Media},
		{"voices.json", &s.Voices},
		{"courseware.json", &s.Courseware},
	} {
		c, err := openCollection(filepath.Join(dir, spec.name))
		if err != nil {
			return nil, err
		}
		*spec.dst = c
	}
	return s, nil
}
