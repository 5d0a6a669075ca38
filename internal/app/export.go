package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/decision"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
	"github.com/arttuliini/GPIO-Vasalli/internal/service"
)

const hourColumnWidth = 7

// RenderSchedule writes the fixed-width hour by channel table.
func RenderSchedule(w io.Writer, sched service.Schedule, generated time.Time) {
	cfgs := sortedByIdentifier(sched.Channels)

	width := 5
	for _, cfg := range cfgs {
		if len(cfg.Identifier) > width {
			width = len(cfg.Identifier)
		}
	}
	width += 2

	fmt.Fprintln(w, "--- Simulated channel schedule (prices: sahkotin.fi) ---")
	fmt.Fprintf(w, "Date: %s\n", sched.Day.Date().Format(time.DateOnly))
	fmt.Fprintf(w, "Generated: %s\n", generated.In(sched.Day.Location()).Format(time.DateTime))
	if sched.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", sched.RunID)
	}
	fmt.Fprintln(w)

	var header, sep strings.Builder
	fmt.Fprintf(&header, "%-*s|%-*s|", hourColumnWidth, "Hour", 9, "c/kWh")
	sep.WriteString(strings.Repeat("-", hourColumnWidth) + "+" + strings.Repeat("-", 9) + "+")
	for _, cfg := range cfgs {
		fmt.Fprintf(&header, "%-*s|", width, cfg.Identifier)
		sep.WriteString(strings.Repeat("-", width) + "+")
	}
	fmt.Fprintln(w, header.String())
	fmt.Fprintln(w, sep.String())

	for h := 0; h < price.HoursPerDay; h++ {
		var row strings.Builder
		fmt.Fprintf(&row, "  %02d:00|%-9s|", h, priceCell(sched.Day, h))
		for _, cfg := range cfgs {
			d, _ := sched.Decision(cfg.Number, h)
			fmt.Fprintf(&row, "%-*s|", width, stateCell(d.State))
		}
		fmt.Fprintln(w, row.String())
	}

	if len(sched.Notes) > 0 {
		fmt.Fprintln(w)
		for _, note := range sched.Notes {
			fmt.Fprintf(w, "Note: %s\n", note)
		}
	}
}

func stateCell(s decision.State) string {
	switch s {
	case decision.StateOn:
		return "ON"
	case decision.StateOff:
		return "OFF"
	}
	return "N/A"
}

func priceCell(day price.Day, hour int) string {
	p, ok := day.Price(hour)
	if !ok {
		return "-"
	}
	return formatDecimal(p, 2)
}

func sortedByIdentifier(cfgs []channel.Config) []channel.Config {
	out := append([]channel.Config(nil), cfgs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

func writeScheduleCSV(path string, sched service.Schedule) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"hour_ts", "channel", "identifier", "price_c_kwh", "state", "reason"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, cfg := range sched.Channels {
		for _, d := range sched.Decisions[cfg.Number] {
			priceStr := ""
			if d.Price != nil {
				priceStr = d.Price.String()
			}
			record := []string{
				d.Hour.Format(time.RFC3339),
				strconv.Itoa(d.Channel),
				d.Identifier,
				priceStr,
				d.State.String(),
				d.Message(),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeSchedulePNG plots the hourly price with one step line per channel on
// the secondary axis: channel k sits at k+1 when ON and at k+0.1 when OFF.
func writeSchedulePNG(path string, sched service.Schedule) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var hours, prices []float64
	for h := 0; h < price.HoursPerDay; h++ {
		if p, ok := sched.Day.Price(h); ok {
			hours = append(hours, float64(h))
			prices = append(prices, p.InexactFloat64())
		}
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Price (c/kWh)",
			XValues: hours,
			YValues: prices,
		},
	}

	for k, cfg := range sched.Channels {
		x := make([]float64, 0, price.HoursPerDay)
		y := make([]float64, 0, price.HoursPerDay)
		for h, d := range sched.Decisions[cfg.Number] {
			level := float64(k) + 0.1
			if d.State.Active() {
				level = float64(k) + 1
			}
			x = append(x, float64(h))
			y = append(y, level)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    cfg.Identifier,
			XValues: x,
			YValues: y,
			YAxis:   chart.YAxisSecondary,
		})
	}

	graph := chart.Chart{
		Title:  "Schedule " + sched.Day.Date().Format(time.DateOnly),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Hour",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: price.HoursPerDay - 1,
			},
		},
		YAxis: chart.YAxis{
			Name:           "Price (c/kWh)",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Channels",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
