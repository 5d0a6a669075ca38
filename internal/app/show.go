package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
)

// Show prints the latest status snapshot.
func (a *App) Show(out io.Writer) error {
	file := storage.NewStatusFile(a.Config.Paths.StatusFile)
	status, err := file.Read()
	if err != nil {
		return err
	}
	if len(status) == 0 {
		fmt.Fprintf(out, "no status recorded yet (%s)\n", file.Path())
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Identifier\tPin\tState\tUpdated\tReason")
	for _, id := range status.Identifiers() {
		entry := status[id]
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\n", id, entry.Pin, entry.State, entry.Timestamp, sanitizeInline(entry.Reason))
	}
	return writer.Flush()
}

// History prints recent decisions from the database.
func (a *App) History(ctx context.Context, opts HistoryOptions, out io.Writer) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; decision history is in " + a.Config.Paths.HistoryFile)
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentDecisions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no decisions found")
		return nil
	}

	loc, err := a.location()
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Hour\tPin\tIdentifier\tState\tPrice\tMode\tReason")
	for _, rec := range records {
		priceStr := "-"
		if rec.Price != nil {
			priceStr = formatDecimal(*rec.Price, 2)
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			rec.HourTS.In(loc).Format("2006-01-02 15:04"),
			rec.Channel,
			rec.Identifier,
			rec.State,
			priceStr,
			rec.Mode,
			sanitizeInline(rec.Message),
		)
	}
	return writer.Flush()
}

// Prune deletes database decisions older than retention.
func (a *App) Prune(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return errors.New("retention must be positive")
	}
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; nothing to prune")
	}
	defer closeStore()

	n, err := store.DeleteDecisionsBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return err
	}
	a.Logger.Info().Int64("deleted", n).Dur("retention", retention).Msg("pruned decision history")
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
