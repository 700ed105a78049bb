package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/database/repositories"
	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
	"github.com/stylelights/stylelights-go/internal/services/pubsub"
	"github.com/stylelights/stylelights-go/internal/services/render"
)

type deviceTypeResponse struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"displayName"`
	ChannelCount int      `json:"channelCount"`
	Controls     []string `json:"controls"`
}

func (s *Server) handleListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	types := s.registry.DeviceTypes()
	out := make([]deviceTypeResponse, 0, len(types))
	for _, dt := range types {
		controls := make([]string, len(dt.Controls))
		for i := range dt.Controls {
			controls[i] = dt.Controls[i].Name
		}
		out = append(out, deviceTypeResponse{
			ID:           dt.ID,
			DisplayName:  dt.DisplayName,
			ChannelCount: dt.ChannelCount(),
			Controls:     controls,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type deviceBody struct {
	Name          string                   `json:"name"`
	Type          string                   `json:"type"`
	Universe      int                      `json:"universe"`
	StartChannel  int                      `json:"startChannel"`
	DefaultValues map[string]fixture.Value `json:"defaultValues,omitempty"`
}

type deviceResponse struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Type           string                   `json:"type"`
	CSSID          string                   `json:"cssId"`
	Universe       int                      `json:"universe"`
	StartChannel   int                      `json:"startChannel"`
	LinkedTo       string                   `json:"linkedTo,omitempty"`
	SyncedControls []string                 `json:"syncedControls,omitempty"`
	Values         map[string]fixture.Value `json:"values"`
}

func (s *Server) deviceResponse(d *render.Device) deviceResponse {
	return deviceResponse{
		ID:             d.ID,
		Name:           d.Name,
		Type:           d.Type.ID,
		CSSID:          d.CSSID,
		Universe:       d.Universe,
		StartChannel:   d.StartChannel,
		LinkedTo:       d.LinkedTo,
		SyncedControls: d.SyncedControls,
		Values:         s.renderer.Values(d.ID),
	}
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.renderer.Devices()
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, s.deviceResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var body deviceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.Universe == 0 {
		body.Universe = 1
	}
	if body.StartChannel == 0 {
		body.StartChannel = 1
	}

	record := &models.Device{
		Name:         body.Name,
		TypeID:       body.Type,
		Universe:     body.Universe,
		StartChannel: body.StartChannel,
	}
	if err := repositories.EncodeDefaultValues(record, body.DefaultValues); err != nil {
		writeError(w, http.StatusBadRequest, "invalid default values")
		return
	}

	device, err := s.renderer.NewDevice(record.ID, body.Name, body.Type, body.Universe, body.StartChannel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deviceRepo.Create(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	device.ID = record.ID
	if err := s.renderer.AddDevice(device, body.DefaultValues); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, s.deviceResponse(device))
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := s.renderer.Device(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, s.deviceResponse(device))
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.renderer.Device(id); !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	if err := s.deviceRepo.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.renderer.RemoveDevice(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDeviceValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	device, ok := s.renderer.Device(id)
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}

	var values map[string]fixture.Value
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.renderer.ApplyValues(id, values)
	writeJSON(w, http.StatusOK, s.deviceResponse(device))
}

func (s *Server) handleSyncDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.renderer.Device(id); !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderer.Sync(id))
}

type linkBody struct {
	LeaderID string   `json:"leaderId"`
	Controls []string `json:"controls,omitempty"`
}

func (s *Server) handleLinkDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body linkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.renderer.Link(id, body.LeaderID, body.Controls); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.persistLink(r, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	device, _ := s.renderer.Device(id)
	writeJSON(w, http.StatusOK, s.deviceResponse(device))
}

func (s *Server) handleUnlinkDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.renderer.Device(id); !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}

	s.renderer.Unlink(id)
	if err := s.persistLink(r, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// persistLink copies the renderer's link state for a device into its record.
func (s *Server) persistLink(r *http.Request, id string) error {
	device, ok := s.renderer.Device(id)
	if !ok {
		return nil
	}
	record, err := s.deviceRepo.FindByID(r.Context(), id)
	if err != nil || record == nil {
		return err
	}
	if device.LinkedTo == "" {
		record.LinkedTo = nil
	} else {
		linked := device.LinkedTo
		record.LinkedTo = &linked
	}
	if err := repositories.EncodeSyncedControls(record, device.SyncedControls); err != nil {
		return err
	}
	return s.deviceRepo.Update(r.Context(), record)
}

func (s *Server) handleListAnimations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.animations.All())
}

func (s *Server) handleSaveAnimation(w http.ResponseWriter, r *http.Request) {
	var anim animation.Animation
	if err := json.NewDecoder(r.Body).Decode(&anim); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if anim.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	anim.Normalize()

	if _, err := s.animationRepo.Save(r.Context(), &anim); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.animations.Put(&anim)
	writeJSON(w, http.StatusOK, &anim)
}

func (s *Server) handleGetAnimation(w http.ResponseWriter, r *http.Request) {
	anim := s.animations.Get(chi.URLParam(r, "name"))
	if anim == nil {
		writeError(w, http.StatusNotFound, "animation not found")
		return
	}
	writeJSON(w, http.StatusOK, anim)
}

func (s *Server) handleDeleteAnimation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.animationRepo.Delete(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.animations.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Mappings())
}

func (s *Server) handleSaveMapping(w http.ResponseWriter, r *http.Request) {
	var m mapping.Mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.Mode == "" {
		writeError(w, http.StatusBadRequest, "mode is required")
		return
	}
	if !m.HasDerivedNames() {
		m.Derive()
	}

	if err := s.mappingRepo.Save(r.Context(), &m); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.reloadMappings(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &m)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.mappingRepo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "mapping not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.mappingRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.reloadMappings(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reloadMappings pushes the persisted mapping set into the dispatcher.
func (s *Server) reloadMappings(ctx context.Context) error {
	mappings, err := s.mappingRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	s.dispatcher.SetMappings(mappings)
	return nil
}

func (s *Server) handleListUniverses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dmx.Universes())
}

func (s *Server) handleGetUniverse(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid universe number")
		return
	}
	data := s.dmx.GetUniverse(n)
	if data == nil {
		writeError(w, http.StatusNotFound, "universe not found")
		return
	}
	channels := make([]int, len(data))
	for i, v := range data {
		channels[i] = int(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"universe": n,
		"channels": channels,
	})
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.renderer.Document(s.animations.All())))
}

type inputEvent struct {
	DeviceID  string  `json:"deviceId"`
	ControlID string  `json:"controlId"`
	Velocity  float64 `json:"velocity,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

func (s *Server) handleInputTrigger(w http.ResponseWriter, r *http.Request) {
	s.handleInput(w, r, "trigger")
}

func (s *Server) handleInputRelease(w http.ResponseWriter, r *http.Request) {
	s.handleInput(w, r, "release")
}

func (s *Server) handleInputChange(w http.ResponseWriter, r *http.Request) {
	s.handleInput(w, r, "change")
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, kind string) {
	var ev inputEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.DeviceID == "" || ev.ControlID == "" {
		writeError(w, http.StatusBadRequest, "deviceId and controlId are required")
		return
	}

	s.dispatchInput(kind, ev)
	w.WriteHeader(http.StatusNoContent)
}

// dispatchInput routes one normalized input event and refreshes the DMX
// output from the stylesheet afterwards.
func (s *Server) dispatchInput(kind string, ev inputEvent) {
	switch kind {
	case "trigger":
		s.dispatcher.Trigger(ev.DeviceID, ev.ControlID, ev.Velocity)
	case "release":
		s.dispatcher.Release(ev.DeviceID, ev.ControlID)
	case "change":
		s.dispatcher.Change(ev.DeviceID, ev.ControlID, ev.Value)
	default:
		return
	}

	if s.pubsub != nil {
		s.pubsub.Publish(pubsub.TopicInputEvent, ev.DeviceID, map[string]any{
			"type":      kind,
			"deviceId":  ev.DeviceID,
			"controlId": ev.ControlID,
			"velocity":  ev.Velocity,
			"value":     ev.Value,
		})
	}
	s.renderer.SyncAll()
}
