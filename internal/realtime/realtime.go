// Package realtime pushes session status changes and pattern triggers to
// browser clients over WebSocket.
package realtime

import (
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gitlab.com/gomidi/midi/v2"

	"github.com/satindergrewal/chromavinyl/internal/pattern"
	"github.com/satindergrewal/chromavinyl/internal/session"
	"github.com/satindergrewal/chromavinyl/internal/stream"
)

const (
	TypeStatus  = "status"
	TypeTrigger = "trigger"
)

// General MIDI channel and notes used to label triggers.
const (
	drumChannel = 9
	kickNote    = 36
	snareNote   = 38
	hihatNote   = 42
	velocity    = 100
)

// Event is one message on the feed. Exactly one of Status and Trigger is set.
type Event struct {
	Type    string          `json:"type"`
	Status  *session.Status `json:"status,omitempty"`
	Trigger *Trigger        `json:"trigger,omitempty"`
}

// Trigger is a fired pattern step.
type Trigger struct {
	Lane  pattern.Lane `json:"lane"`
	Step  int          `json:"step"`
	Tick  int64        `json:"tick"`
	Notes []string     `json:"notes"`
	MIDI  string       `json:"midi"` // hex of the note-on messages
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans events out to connected clients. Publishing never blocks; slow
// clients miss events.
type Hub struct {
	events *stream.Broadcaster[Event]
	status func() session.Status
}

// NewHub creates a hub. status, if non-nil, supplies the snapshot sent to
// each client when it connects.
func NewHub(status func() session.Status) *Hub {
	return &Hub{events: stream.NewBroadcaster[Event](256), status: status}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return h.events.ListenerCount() }

// PublishStatus sends a status snapshot to every client.
func (h *Hub) PublishStatus(st session.Status) {
	h.events.Publish(Event{Type: TypeStatus, Status: &st})
}

// PublishTrigger sends a pattern trigger to every client.
func (h *Hub) PublishTrigger(t pattern.Trigger) {
	tg := &Trigger{Lane: t.Lane, Step: t.Step, Tick: int64(t.Tick), Notes: []string{}}
	for _, p := range t.Pitches {
		tg.Notes = append(tg.Notes, p.String())
	}
	var raw []byte
	for _, m := range NoteOns(t) {
		raw = append(raw, m...)
	}
	tg.MIDI = hex.EncodeToString(raw)
	h.events.Publish(Event{Type: TypeTrigger, Trigger: tg})
}

// NoteOns renders a trigger as MIDI note-on messages. Melody, chords and bass
// use channels 0-2; drums use the General MIDI percussion channel.
func NoteOns(t pattern.Trigger) []midi.Message {
	switch t.Lane {
	case pattern.LaneKick:
		return []midi.Message{midi.NoteOn(drumChannel, kickNote, velocity)}
	case pattern.LaneSnare:
		return []midi.Message{midi.NoteOn(drumChannel, snareNote, velocity)}
	case pattern.LaneHihat:
		return []midi.Message{midi.NoteOn(drumChannel, hihatNote, velocity)}
	}
	ch := uint8(t.Lane)
	var out []midi.Message
	for _, p := range t.Pitches {
		if p.IsRest() {
			continue
		}
		out = append(out, midi.NoteOn(ch, uint8(p), velocity))
	}
	return out
}

// ServeHTTP upgrades to a WebSocket and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	l := h.events.Subscribe()
	defer h.events.Unsubscribe(l)
	log.Printf("WS [%s]: client connected (total: %d)", id, h.Clients())
	defer log.Printf("WS [%s]: client disconnected", id)

	// Drain incoming messages (ping/pong, close frames) without blocking.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if h.status != nil {
		st := h.status()
		if err := conn.WriteJSON(Event{Type: TypeStatus, Status: &st}); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-l.Done():
			return
		case ev := <-l.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
