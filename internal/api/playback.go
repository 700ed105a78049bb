package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stylelights/stylelights-go/internal/services/player"
)

type playBody struct {
	// Devices lists targets by ID or CSS ID. Empty means every device.
	Devices    []string `json:"devices,omitempty"`
	DurationMs int      `json:"durationMs"`
	Iterations int      `json:"iterations,omitempty"`
	Timing     string   `json:"timing,omitempty"`
}

func (s *Server) handlePlayAnimation(w http.ResponseWriter, r *http.Request) {
	anim := s.animations.Get(chi.URLParam(r, "name"))
	if anim == nil {
		writeError(w, http.StatusNotFound, "animation not found")
		return
	}

	var body playBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DurationMs <= 0 {
		writeError(w, http.StatusBadRequest, "durationMs must be positive")
		return
	}

	var targets []string
	if len(body.Devices) == 0 {
		for _, d := range s.renderer.Devices() {
			targets = append(targets, d.ID)
		}
	} else {
		for _, ref := range body.Devices {
			d, ok := s.renderer.Device(ref)
			if !ok {
				d, ok = s.renderer.DeviceByCSSID(ref)
			}
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown device: "+ref)
				return
			}
			targets = append(targets, d.ID)
		}
	}

	id := s.player.Play(anim, targets, player.Options{
		ID:         anim.CSSName(),
		Duration:   time.Duration(body.DurationMs) * time.Millisecond,
		Iterations: body.Iterations,
		Timing:     player.Timing(body.Timing),
	})
	writeJSON(w, http.StatusOK, map[string]string{"playbackId": id})
}

func (s *Server) handleListPlaybacks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.ActivePlaybacks())
}

func (s *Server) handleCancelPlayback(w http.ResponseWriter, r *http.Request) {
	s.player.Cancel(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelAllPlaybacks(w http.ResponseWriter, r *http.Request) {
	s.player.CancelAll()
	w.WriteHeader(http.StatusNoContent)
}
