package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stylelights/stylelights-go/internal/services/pubsub"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 10 * time.Second
	wsEventBuffer  = 64
)

// wsEvent is one outbound websocket frame: a pubsub topic and its payload.
type wsEvent struct {
	Topic   pubsub.Topic `json:"topic"`
	Payload any          `json:"payload"`
}

// wsCommand is one inbound frame: an input event from the client.
type wsCommand struct {
	Type      string  `json:"type"` // trigger, release, change
	DeviceID  string  `json:"deviceId"`
	ControlID string  `json:"controlId"`
	Velocity  float64 `json:"velocity,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// handleWebsocket upgrades the connection and bridges it to the pubsub bus:
// stylesheet changes and DMX snapshots stream out, input events stream in.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	styleSub := s.pubsub.Subscribe(pubsub.TopicStyleChanged, "", wsEventBuffer)
	dmxSub := s.pubsub.Subscribe(pubsub.TopicDMXOutput, "", wsEventBuffer)
	inputSub := s.pubsub.Subscribe(pubsub.TopicInputEvent, "", wsEventBuffer)

	done := make(chan struct{})

	go func() {
		defer func() {
			s.pubsub.Unsubscribe(styleSub)
			s.pubsub.Unsubscribe(dmxSub)
			s.pubsub.Unsubscribe(inputSub)
			_ = conn.Close()
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			var ev wsEvent
			select {
			case <-done:
				return
			case msg := <-styleSub.Channel:
				ev = wsEvent{Topic: pubsub.TopicStyleChanged, Payload: msg}
			case msg := <-dmxSub.Channel:
				ev = wsEvent{Topic: pubsub.TopicDMXOutput, Payload: msg}
			case msg := <-inputSub.Channel:
				ev = wsEvent{Topic: pubsub.TopicInputEvent, Payload: msg}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		s.dispatchInput(cmd.Type, inputEvent{
			DeviceID:  cmd.DeviceID,
			ControlID: cmd.ControlID,
			Velocity:  cmd.Velocity,
			Value:     cmd.Value,
		})
	}
	close(done)
}
