package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stylelights/stylelights-go/internal/services/network"
)

func (s *Server) handleNetworkInterfaces(w http.ResponseWriter, r *http.Request) {
	options, err := network.BroadcastOptions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, options)
}

type settingBody struct {
	Value string `json:"value"`
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingRepo.FindAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]settingResponse, 0, len(settings))
	for _, st := range settings {
		out = append(out, settingResponse{Key: st.Key, Value: st.Value})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.settingRepo.FindByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if setting == nil {
		writeError(w, http.StatusNotFound, "setting not found")
		return
	}
	writeJSON(w, http.StatusOK, settingResponse{Key: setting.Key, Value: setting.Value})
}

// handlePutSetting stores a setting. Values that feed startup wiring, like
// artnet_broadcast, take effect on the next boot.
func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var body settingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	setting, err := s.settingRepo.Upsert(r.Context(), chi.URLParam(r, "key"), body.Value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingResponse{Key: setting.Key, Value: setting.Value})
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.settingRepo.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
