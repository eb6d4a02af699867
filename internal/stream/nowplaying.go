package stream

import (
	"fmt"

	"github.com/satindergrewal/chromavinyl/internal/session"
)

// NowPlaying reports the current performance. *session.Session.Status
// satisfies it.
type NowPlaying func() session.Status

// Title is the listener-facing description of a status, e.g.
// "Bright Pop (bright_warm, 135 BPM)". An idle session reads "idle".
func Title(st session.Status) string {
	if !st.Playing {
		return "idle"
	}
	return fmt.Sprintf("%s (%s, %d BPM)", st.Summary.StyleName, st.Summary.Category, st.Summary.Tempo)
}

func (np NowPlaying) title() string {
	if np == nil {
		return "idle"
	}
	return Title(np())
}
