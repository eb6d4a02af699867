package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/satindergrewal/chromavinyl/internal/audio"
	"github.com/satindergrewal/chromavinyl/internal/session"
	"gopkg.in/hraban/opus.v2"
)

// NowPlayingLabel is the data channel a browser opens to receive the
// playing style as JSON whenever it changes.
const NowPlayingLabel = "nowplaying"

// nowPlayingPoll is how often a peer's data channel checks for a new style.
const nowPlayingPoll = 500 * time.Millisecond

// WebRTCHandler negotiates low-latency Opus peers for the performance.
type WebRTCHandler struct {
	frames   *Broadcaster[[]int16]
	now      NowPlaying
	streamID string
	bitrate  int

	mu    sync.Mutex
	peers map[string]*peer
}

type peer struct {
	id     string
	pc     *webrtc.PeerConnection
	joined string
	cancel context.CancelFunc
}

// NowPlayingMessage is sent on the nowplaying data channel.
type NowPlayingMessage struct {
	Title   string          `json:"title"`
	Playing bool            `json:"playing"`
	Summary session.Summary `json:"summary"`
}

// NewWebRTCHandler creates a handler encoding Opus at bitrate bits per second.
func NewWebRTCHandler(frames *Broadcaster[[]int16], now NowPlaying, streamID string, bitrate int) *WebRTCHandler {
	return &WebRTCHandler{
		frames:   frames,
		now:      now,
		streamID: streamID,
		bitrate:  bitrate,
		peers:    make(map[string]*peer),
	}
}

// PeerCount returns the number of connected peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// PeerStyles maps peer id to the title that was playing when it joined.
func (h *WebRTCHandler) PeerStyles() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.peers))
	for id, p := range h.peers {
		out[id] = p.joined
	}
	return out
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	p, track, err := h.negotiate(offer)
	if err != nil {
		var neg *negotiationError
		code := http.StatusInternalServerError
		if errors.As(err, &neg) && neg.client {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	h.addPeer(p)
	log.Printf("WebRTC peer %s joined during %q (total: %d)", p.id, p.joined, h.PeerCount())
	go h.streamToPeer(ctx, track)

	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != NowPlayingLabel {
			return
		}
		dc.OnOpen(func() { go h.pushNowPlaying(ctx, dc) })
	})
	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			h.dropPeer(p.id)
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(p.pc.LocalDescription())
}

type negotiationError struct {
	step   string
	client bool
	err    error
}

func (e *negotiationError) Error() string { return e.step + " failed" }
func (e *negotiationError) Unwrap() error { return e.err }

// negotiate answers offer with a peer carrying one Opus track. The answer
// includes every gathered ICE candidate.
func (h *WebRTCHandler) negotiate(offer webrtc.SessionDescription) (*peer, *webrtc.TrackLocalStaticSample, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, &negotiationError{step: "create peer connection", err: err}
	}
	fail := func(step string, client bool, err error) (*peer, *webrtc.TrackLocalStaticSample, error) {
		pc.Close()
		return nil, nil, &negotiationError{step: step, client: client, err: err}
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		h.streamID,
	)
	if err != nil {
		return fail("create audio track", false, err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		return fail("add track", false, err)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail("set remote description", true, err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail("create answer", false, err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail("set local description", false, err)
	}
	<-gathered

	return &peer{id: uuid.NewString(), pc: pc, joined: h.now.title()}, track, nil
}

func (h *WebRTCHandler) addPeer(p *peer) {
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
}

// dropPeer closes and forgets a peer. Unknown ids are ignored.
func (h *WebRTCHandler) dropPeer(id string) {
	h.mu.Lock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.pc != nil {
		p.pc.Close()
	}
	log.Printf("WebRTC peer %s left (remaining: %d)", id, h.PeerCount())
}

func newOpusEncoder(bitrate int) (*opus.Encoder, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		log.Printf("WebRTC: opus bitrate %d rejected: %v", bitrate, err)
	}
	return enc, nil
}

func (h *WebRTCHandler) streamToPeer(ctx context.Context, track *webrtc.TrackLocalStaticSample) {
	listener := h.frames.Subscribe()
	defer h.frames.Unsubscribe(listener)

	enc, err := newOpusEncoder(h.bitrate)
	if err != nil {
		log.Printf("WebRTC: opus encoder: %v", err)
		return
	}
	packet := make([]byte, 4000)
	for {
		select {
		case <-ctx.Done():
			return
		case <-listener.Done():
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, packet)
			if err != nil {
				log.Printf("WebRTC: opus encode: %v", err)
				continue
			}
			if err := track.WriteSample(media.Sample{Data: packet[:n], Duration: audio.FrameDuration}); err != nil {
				return
			}
		}
	}
}

// textSender is the part of a data channel pushNowPlaying uses.
type textSender interface {
	SendText(string) error
}

// pushNowPlaying sends the current style at once and again after every
// change, until ctx ends or a send fails.
func (h *WebRTCHandler) pushNowPlaying(ctx context.Context, dc textSender) {
	ticker := time.NewTicker(nowPlayingPoll)
	defer ticker.Stop()
	last := ""
	for {
		msg, err := h.nowPlayingText()
		if err != nil {
			log.Printf("WebRTC: now playing: %v", err)
			return
		}
		if msg != last {
			if err := dc.SendText(msg); err != nil {
				return
			}
			last = msg
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *WebRTCHandler) nowPlayingText() (string, error) {
	var st session.Status
	if h.now != nil {
		st = h.now()
	}
	b, err := json.Marshal(NowPlayingMessage{Title: Title(st), Playing: st.Playing, Summary: st.Summary})
	return string(b), err
}
