package stream

import (
	"context"
	"io"
	"log"
	"net/http"
	"os/exec"
	"strconv"
	"strings"

	"github.com/satindergrewal/chromavinyl/internal/audio"
)

// MetaInterval is the number of MP3 bytes between in-band ICY title blocks.
const MetaInterval = 16000

// HTTPHandler serves the performance as a chunked MP3 stream. Each listener
// gets its own ffmpeg encoder. Clients that send "Icy-MetaData: 1" receive
// the playing style as in-band StreamTitle updates.
type HTTPHandler struct {
	frames  *Broadcaster[[]int16]
	now     NowPlaying
	station string
	bitrate string
}

// NewHTTPHandler creates an MP3 handler for station. bitrate is an ffmpeg
// bitrate such as "192k".
func NewHTTPHandler(frames *Broadcaster[[]int16], now NowPlaying, station, bitrate string) *HTTPHandler {
	return &HTTPHandler{frames: frames, now: now, station: station, bitrate: bitrate}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	withMeta := r.Header.Get("Icy-MetaData") == "1"
	h.writeHeaders(w.Header(), withMeta)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", encoderArgs(h.bitrate)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Printf("MP3 stream: stdin pipe: %v", err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("MP3 stream: stdout pipe: %v", err)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("MP3 stream: ffmpeg start: %v", err)
		return
	}

	listener := h.frames.Subscribe()
	defer h.frames.Unsubscribe(listener)
	log.Printf("MP3 listener joined during %q (total: %d)", h.now.title(), h.frames.ListenerCount())
	defer log.Printf("MP3 listener left")

	go feedPCM(ctx, listener, stdin)

	var out io.Writer = w
	if withMeta {
		out = newICYWriter(w, MetaInterval, h.now.title)
	}
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("MP3 stream: ffmpeg read: %v", err)
			}
			break
		}
	}

	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		log.Printf("MP3 stream: ffmpeg exited: %v", err)
	}
}

func (h *HTTPHandler) writeHeaders(hdr http.Header, withMeta bool) {
	hdr.Set("Content-Type", "audio/mpeg")
	hdr.Set("Cache-Control", "no-cache, no-store")
	hdr.Set("Connection", "close")
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("ICY-Name", h.station)
	hdr.Set("ICY-Description", h.now.title())
	hdr.Set("ICY-Br", strings.TrimSuffix(h.bitrate, "k"))
	if withMeta {
		hdr.Set("ICY-MetaInt", strconv.Itoa(MetaInterval))
	}
}

// encoderArgs converts s16le PCM on stdin to MP3 on stdout.
func encoderArgs(bitrate string) []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

func feedPCM(ctx context.Context, l *Listener[[]int16], w io.WriteCloser) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Done():
			return
		case frame, ok := <-l.C:
			if !ok {
				return
			}
			if _, err := w.Write(audio.SamplesToBytes(frame)); err != nil {
				return
			}
		}
	}
}

// icyWriter interleaves a metadata block after every interval bytes of
// audio. The block repeats the title only when it changed; otherwise it is
// a single zero length byte.
type icyWriter struct {
	w        io.Writer
	interval int
	left     int
	title    func() string
	sent     string
}

func newICYWriter(w io.Writer, interval int, title func() string) *icyWriter {
	return &icyWriter{w: w, interval: interval, left: interval, title: title}
}

func (iw *icyWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := min(len(p), iw.left)
		m, err := iw.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
		iw.left -= n
		if iw.left == 0 {
			if _, err := iw.w.Write(iw.block()); err != nil {
				return written, err
			}
			iw.left = iw.interval
		}
	}
	return written, nil
}

func (iw *icyWriter) block() []byte {
	t := iw.title()
	if t == iw.sent {
		return []byte{0}
	}
	iw.sent = t
	return icyBlock(t)
}

// icyBlock encodes StreamTitle as a length byte (in 16 byte units)
// followed by the zero padded text.
func icyBlock(title string) []byte {
	title = strings.ReplaceAll(title, "'", "")
	if limit := 255*16 - len("StreamTitle='';"); len(title) > limit {
		title = title[:limit]
	}
	text := "StreamTitle='" + title + "';"
	units := (len(text) + 15) / 16
	b := make([]byte, 1+units*16)
	b[0] = byte(units)
	copy(b[1:], text)
	return b
}
