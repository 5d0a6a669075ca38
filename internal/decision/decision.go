// Package decision turns a channel configuration and an hour's price into an
// ON/OFF/unknown decision. Live and simulated runs share the same rules and
// differ only in the Oracle that answers classification and ranking queries.
package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

// State is the decided output of a channel. The zero value is StateUnknown.
type State int

const (
	// StateUnknown means no usable price or classification; actuated as OFF.
	StateUnknown State = iota
	// StateOn switches the channel on.
	StateOn
	// StateOff switches the channel off.
	StateOff
)

// Active reports whether the channel should be energized. Unknown is treated
// as OFF.
func (s State) Active() bool {
	return s == StateOn
}

func (s State) String() string {
	switch s {
	case StateOn:
		return "ON"
	case StateOff:
		return "OFF"
	}
	return "UNKNOWN"
}

// ParseState reads the form written by String.
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn
	case "OFF":
		return StateOff
	}
	return StateUnknown
}

// Reason is the stable code of the rule that produced a decision.
type Reason string

const (
	ReasonNoPrice           Reason = "no_price_data"
	ReasonUnavailable       Reason = "classification_unavailable"
	ReasonAboveUpper        Reason = "above_upper"
	ReasonAtOrBelowLower    Reason = "at_or_below_lower"
	ReasonRankingDisabled   Reason = "within_ranking_disabled"
	ReasonWithinCheapest    Reason = "within_cheapest"
	ReasonWithinNotCheapest Reason = "within_not_cheapest"
	ReasonRankingFailed     Reason = "ranking_failed"
)

var reasonText = map[Reason]string{
	ReasonNoPrice:           "no price data",
	ReasonUnavailable:       "classification unavailable",
	ReasonAboveUpper:        "price above upper limit",
	ReasonAtOrBelowLower:    "price at or below lower limit",
	ReasonRankingDisabled:   "within band, ranking disabled",
	ReasonWithinCheapest:    "within band, hour is among the cheapest",
	ReasonWithinNotCheapest: "within band, hour is not among the cheapest",
	ReasonRankingFailed:     "ranking lookup failed",
}

// Text is the display form of the reason.
func (r Reason) Text() string {
	if t, ok := reasonText[r]; ok {
		return t
	}
	return string(r)
}

// Decision is the outcome for one channel and one hour.
type Decision struct {
	RunID      string           `json:"run_id"`
	Channel    int              `json:"channel"`
	Identifier string           `json:"identifier"`
	Hour       time.Time        `json:"hour"`
	State      State            `json:"-"`
	Reason     Reason           `json:"reason"`
	Detail     string           `json:"detail,omitempty"`
	Class      *price.Class     `json:"-"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Lower      int              `json:"lower_limit"`
	Upper      int              `json:"upper_limit"`
	RankN      int              `json:"rank_n"`
}

// Message renders the reason with the values that triggered it.
func (d Decision) Message() string {
	var b strings.Builder
	b.WriteString(d.Reason.Text())

	switch d.Reason {
	case ReasonAboveUpper:
		fmt.Fprintf(&b, " (%d c/kWh)", d.Upper)
	case ReasonAtOrBelowLower:
		fmt.Fprintf(&b, " (%d c/kWh)", d.Lower)
	case ReasonWithinCheapest, ReasonWithinNotCheapest:
		fmt.Fprintf(&b, " (N=%d)", d.RankN)
	}
	if d.Price != nil {
		fmt.Fprintf(&b, ", price %s c/kWh", d.Price.StringFixed(2))
	}
	if d.Detail != "" {
		b.WriteString(": ")
		b.WriteString(d.Detail)
	}
	return b.String()
}
