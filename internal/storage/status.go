package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// StatusFile holds the JSON snapshot of the latest run.
type StatusFile struct {
	path string
}

// NewStatusFile binds path.
func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path returns the bound path.
func (f *StatusFile) Path() string {
	return f.path
}

// Read returns the stored snapshot. A missing file is an empty snapshot.
func (f *StatusFile) Read() (Status, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Status{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status %s: %w", f.path, err)
	}

	status := Status{}
	if len(raw) == 0 {
		return status, nil
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", f.path, err)
	}
	return status, nil
}

// Write replaces the snapshot atomically.
func (f *StatusFile) Write(status Status) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	payload, err := json.MarshalIndent(status, "", "    ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write status %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace status %s: %w", f.path, err)
	}
	return nil
}

// Identifiers returns the snapshot keys in channel-number order.
func (s Status) Identifiers() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s[ids[i]].Pin != s[ids[j]].Pin {
			return s[ids[i]].Pin < s[ids[j]].Pin
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Change is a channel whose state differs between two snapshots.
type Change struct {
	Identifier string
	Pin        int
	From       string
	To         string
	Reason     string
}

// Diff lists the channels of next whose state is new or differs from prev.
func Diff(prev, next Status) []Change {
	var changes []Change
	for _, id := range next.Identifiers() {
		cur := next[id]
		old, ok := prev[id]
		if ok && old.State == cur.State {
			continue
		}
		from := ""
		if ok {
			from = old.State
		}
		changes = append(changes, Change{Identifier: id, Pin: cur.Pin, From: from, To: cur.State, Reason: cur.Reason})
	}
	return changes
}
