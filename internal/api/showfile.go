package api

import (
	"context"
	"io"
	"net/http"

	"github.com/stylelights/stylelights-go/internal/database/repositories"
	"github.com/stylelights/stylelights-go/internal/services/showfile"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.showfile.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := doc.ToJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="show.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	doc, err := showfile.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode := showfile.ImportModeMerge
	if r.URL.Query().Get("mode") == "replace" {
		mode = showfile.ImportModeReplace
	}

	stats, err := s.showfile.Import(r.Context(), doc, mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.reloadState(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// reloadState rebuilds the in-memory renderer, animation store, and
// dispatcher from the database after a bulk change.
func (s *Server) reloadState(ctx context.Context) error {
	for _, d := range s.renderer.Devices() {
		s.renderer.RemoveDevice(d.ID)
	}

	records, err := s.deviceRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		device, err := s.renderer.NewDevice(rec.ID, rec.Name, rec.TypeID, rec.Universe, rec.StartChannel)
		if err != nil {
			continue
		}
		defaults, err := repositories.DefaultValues(rec)
		if err != nil {
			return err
		}
		if err := s.renderer.AddDevice(device, defaults); err != nil {
			return err
		}
	}
	for i := range records {
		rec := &records[i]
		if rec.LinkedTo == nil {
			continue
		}
		controls, err := repositories.SyncedControls(rec)
		if err != nil {
			return err
		}
		// A dangling link is dropped rather than failing the reload.
		_ = s.renderer.Link(rec.ID, *rec.LinkedTo, controls)
	}

	animations, err := s.animationRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, anim := range s.animations.All() {
		s.animations.Remove(anim.Name)
	}
	for _, anim := range animations {
		s.animations.Put(anim)
	}

	return s.reloadMappings(ctx)
}
