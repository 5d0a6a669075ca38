package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StateChange is one channel whose output flipped.
type StateChange struct {
	Identifier string
	Pin        int
	From       string
	To         string
	Reason     string
}

// Notification wraps the changes of one evaluation run.
type Notification struct {
	RunID    string
	RunStart time.Time
	Location *time.Location
	Changes  []StateChange
}

// Notifier delivers state-change notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage. Notifications without changes are dropped.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if len(note.Changes) == 0 {
		return nil
	}

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("run_id", note.RunID).
		Int("changes", len(note.Changes)).
		Msg("state change notification sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	loc := note.Location
	if loc == nil {
		loc = time.UTC
	}

	builder := strings.Builder{}
	builder.WriteString("[Vasalli] channel state changed\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunStart.In(loc).Format("2006-01-02 15:04 MST")))
	for _, c := range note.Changes {
		from := c.From
		if from == "" {
			from = "-"
		}
		builder.WriteString(fmt.Sprintf("%s (pin %d): %s -> %s", c.Identifier, c.Pin, from, c.To))
		if c.Reason != "" {
			builder.WriteString(fmt.Sprintf(", %s", c.Reason))
		}
		builder.WriteString("\n")
	}
	if note.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run ID: %s\n", note.RunID))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
