package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File is the JSON settings list edited by the channels command.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile binds a settings file path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the bound path.
func (f *File) Path() string {
	return f.path
}

// Load reads the raw records. A missing file is an empty list.
func (f *File) Load() ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *File) load() ([]map[string]any, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", f.path, err)
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("settings %s is not a JSON list: %w", f.path, err)
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rec, _ := item.(map[string]any)
		records = append(records, rec)
	}
	return records, nil
}

// Channels loads and validates the configured channels for mode.
func (f *File) Channels(mode Mode, onNote func(Config, string)) ([]Config, error) {
	records, err := f.Load()
	if err != nil {
		return nil, err
	}
	return ValidateAll(records, mode, onNote)
}

// Upsert adds the channel or replaces the one with the same number.
func (f *File) Upsert(cfg Config) error {
	cfg, _, err := FromRecord(cfg.Record(), ModeSimulation)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, rec := range records {
		if n, err := requiredInt(rec, KeyNumber); err == nil && n == cfg.Number {
			records[i] = cfg.Record()
			replaced = true
			continue
		}
		if other, _, err := FromRecord(rec, ModeSimulation); err == nil && other.Identifier == cfg.Identifier {
			return &ValidationError{Index: -1, Field: KeyIdentifier, Reason: fmt.Sprintf("identifier %q already used by channel %d", cfg.Identifier, other.Number)}
		}
	}
	if !replaced {
		records = append(records, cfg.Record())
	}
	return f.save(records)
}

// Delete removes the channel with number and reports whether it existed.
func (f *File) Delete(number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return false, err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if n, err := requiredInt(rec, KeyNumber); err == nil && n == number {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return false, nil
	}
	return true, f.save(kept)
}

func (f *File) save(records []map[string]any) error {
	sort.SliceStable(records, func(i, j int) bool {
		a, errA := requiredInt(records[i], KeyNumber)
		b, errB := requiredInt(records[j], KeyNumber)
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})

	body, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, f.path)
}
