package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
)

// DecisionRecord is one persisted channel decision.
type DecisionRecord struct {
	ID         int64
	RunID      string
	Mode       string
	HourTS     time.Time
	Channel    int
	Identifier string
	State      string
	Reason     string
	Message    string
	Price      *decimal.Decimal
	Lower      int
	Upper      int
	RankN      int
	CreatedAt  time.Time
}

// NewDecisionRecord flattens d for persistence.
func NewDecisionRecord(d decision.Decision, mode string) DecisionRecord {
	return DecisionRecord{
		RunID:      d.RunID,
		Mode:       mode,
		HourTS:     d.Hour,
		Channel:    d.Channel,
		Identifier: d.Identifier,
		State:      d.State.String(),
		Reason:     string(d.Reason),
		Message:    d.Message(),
		Price:      d.Price,
		Lower:      d.Lower,
		Upper:      d.Upper,
		RankN:      d.RankN,
	}
}

// StatusEntry is the latest known state of one channel.
type StatusEntry struct {
	Pin       int    `json:"pin"`
	State     string `json:"state"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
}

// Status maps channel identifiers to their latest entry.
type Status map[string]StatusEntry

// NewStatus builds a status snapshot from one run's decisions.
func NewStatus(decisions []decision.Decision, runStart time.Time) Status {
	status := make(Status, len(decisions))
	for _, d := range decisions {
		status[d.Identifier] = StatusEntry{
			Pin:       d.Channel,
			State:     d.State.String(),
			Reason:    d.Message(),
			Timestamp: runStart.Format(time.RFC3339),
			RunID:     d.RunID,
		}
	}
	return status
}
