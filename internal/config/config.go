package config

import (
	"os"
	"strconv"
	"time"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Playback
	Volume         float64       // initial master level, 0-1
	AcquireTimeout time.Duration // how long Start waits for the audio output

	// Streams
	OpusBitrate int    // WebRTC Opus bits per second
	MP3Bitrate  string // ffmpeg -b:a value for /stream
	StreamName  string // ICY name and WebRTC stream id
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("CHROMA_PORT", 8080),

		Volume:         envFloat("CHROMA_VOLUME", 0.7),
		AcquireTimeout: time.Duration(envInt("CHROMA_ACQUIRE_TIMEOUT", 5)) * time.Second,

		OpusBitrate: envInt("CHROMA_OPUS_BITRATE", 128000),
		MP3Bitrate:  envStr("CHROMA_MP3_BITRATE", "192k"),
		StreamName:  envStr("CHROMA_STREAM_NAME", "chromavinyl"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
