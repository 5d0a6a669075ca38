package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

type channelsResponse struct {
	Mode     string           `json:"mode"`
	Channels []channel.Config `json:"channels"`
	Notes    []string         `json:"notes,omitempty"`
	Errors   []string         `json:"errors,omitempty"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Channels == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}

	mode := modeParam(r)
	resp := channelsResponse{Mode: mode.String()}
	cfgs, err := s.cfg.Channels.Channels(mode, func(cfg channel.Config, note string) {
		resp.Notes = append(resp.Notes, fmt.Sprintf("channel %d: %s", cfg.Number, note))
	})
	if err != nil {
		var verr *channel.ValidationError
		if !errors.As(err, &verr) {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Channels = cfgs
	if resp.Channels == nil {
		resp.Channels = []channel.Config{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Status == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	status, err := s.cfg.Status.Read()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type simulationHour struct {
	Hour   int     `json:"hour"`
	Price  *string `json:"price_c_kwh"`
	State  string  `json:"state"`
	Reason string  `json:"reason"`
}

type simulationChannel struct {
	Number     int              `json:"number"`
	Identifier string           `json:"identifier"`
	OnHours    int              `json:"on_hours"`
	Hours      []simulationHour `json:"hours"`
}

type simulationResponse struct {
	Date     string              `json:"date"`
	RunID    string              `json:"run_id"`
	Missing  []int               `json:"missing_hours"`
	Notes    []string            `json:"notes,omitempty"`
	Channels []simulationChannel `json:"channels"`
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Simulator == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}

	date := time.Now().In(s.cfg.Location)
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.ParseInLocation(time.DateOnly, q, s.cfg.Location)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", q))
			return
		}
		date = d
	}

	sched, err := s.cfg.Simulator.SimulateDay(r.Context(), date)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	resp := simulationResponse{
		Date:     sched.Day.Date().Format(time.DateOnly),
		RunID:    sched.RunID,
		Missing:  sched.Day.Missing(),
		Notes:    sched.Notes,
		Channels: make([]simulationChannel, 0, len(sched.Channels)),
	}
	if resp.Missing == nil {
		resp.Missing = []int{}
	}
	for _, cfg := range sched.Channels {
		ch := simulationChannel{Number: cfg.Number, Identifier: cfg.Identifier, OnHours: sched.OnHours(cfg.Number)}
		for h := 0; h < price.HoursPerDay; h++ {
			d, ok := sched.Decision(cfg.Number, h)
			if !ok {
				continue
			}
			hour := simulationHour{Hour: h, State: d.State.String(), Reason: d.Message()}
			if d.Price != nil {
				p := d.Price.StringFixed(2)
				hour.Price = &p
			}
			ch.Hours = append(ch.Hours, hour)
		}
		resp.Channels = append(resp.Channels, ch)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
