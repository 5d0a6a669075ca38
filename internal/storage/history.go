package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
)

var historyHeader = []string{"Timestamp", "PinNumber", "Identifier", "State", "Reason"}

// CSVHistory appends one row per channel per run.
type CSVHistory struct {
	path string
	mu   sync.Mutex
}

// NewCSVHistory binds path.
func NewCSVHistory(path string) *CSVHistory {
	return &CSVHistory{path: path}
}

// Append writes decisions, emitting the header when the file is new or empty.
func (h *CSVHistory) Append(runStart time.Time, decisions []decision.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history %s: %w", h.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(historyHeader); err != nil {
			return err
		}
	}
	ts := runStart.Format(time.RFC3339)
	for _, d := range decisions {
		row := []string{ts, strconv.Itoa(d.Channel), d.Identifier, d.State.String(), d.Message()}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write history %s: %w", h.path, err)
	}
	return nil
}
