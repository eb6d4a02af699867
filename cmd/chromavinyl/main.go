package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/chromavinyl/internal/analysis"
	"github.com/satindergrewal/chromavinyl/internal/api"
	"github.com/satindergrewal/chromavinyl/internal/audio"
	"github.com/satindergrewal/chromavinyl/internal/config"
	"github.com/satindergrewal/chromavinyl/internal/mood"
	"github.com/satindergrewal/chromavinyl/internal/realtime"
	"github.com/satindergrewal/chromavinyl/internal/session"
	"github.com/satindergrewal/chromavinyl/internal/stream"
	"github.com/satindergrewal/chromavinyl/internal/style"
)

var version = "0.1.0"

var (
	port       int
	brightness float64
	seconds    float64
	outputPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chromavinyl",
	Short: "Turn an image's colors into a live generated performance",
	Long: `chromavinyl classifies an image analysis (brightness and dominant
colors) into a mood, picks a musical style for it, and plays that style
as a looping multi-track performance.

Pipeline: analysis → mood → style → voices + patterns → PCM stream`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playback server",
	Long: `Start the HTTP server. The performance is streamed as MP3 on /stream
and over WebRTC via /offer; playback is controlled through /api.

Example:
  chromavinyl serve --port 8080`,
	RunE: runServe,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <analysis.json>",
	Short: "Print the mood and style for an analysis file ('-' for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List every style at a brightness",
	RunE:  runStyles,
}

var renderCmd = &cobra.Command{
	Use:   "render <analysis.json>",
	Short: "Render a performance offline to raw PCM (s16le, 48kHz, stereo)",
	Long: `Render a performance without real-time pacing. The output can be
played with: ffplay -f s16le -ar 48000 -ch_layout stereo out.raw

Example:
  chromavinyl render photo.json --seconds 30 -o out.raw`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(stylesCmd)
	rootCmd.AddCommand(renderCmd)

	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides CHROMA_PORT)")
	stylesCmd.Flags().Float64VarP(&brightness, "brightness", "b", analysis.DefaultBrightness, "Average brightness used for tempo")
	renderCmd.Flags().Float64VarP(&seconds, "seconds", "s", 16, "Length to render")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("chromavinyl starting up...")

	// Audio pipeline renders the session in real time
	pipeline := audio.NewPipeline()
	sess := session.New(pipeline, audio.SampleRate, cfg.Volume)
	go pipeline.Run(ctx, sess)

	// Broadcaster: fan-out PCM frames to all listeners
	broadcaster := stream.NewBroadcaster[[]int16](stream.DefaultBuffer)
	go broadcaster.Run(ctx, pipeline.Frames())

	hub := realtime.NewHub(sess.Status)
	sess.Subscribe(hub.PublishTrigger)

	webrtcHandler := stream.NewWebRTCHandler(broadcaster, sess.Status, cfg.StreamName, cfg.OpusBitrate)
	srv := api.New(sess, hub, api.Options{
		AcquireTimeout: cfg.AcquireTimeout,
		Stream:         stream.NewHTTPHandler(broadcaster, sess.Status, cfg.StreamName, cfg.MP3Bitrate),
		Offer:          webrtcHandler,
		Listeners: func() int {
			return broadcaster.ListenerCount() + webrtcHandler.PeerCount()
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := sess.Stop(); err != nil {
			log.Printf("Stop on shutdown: %v", err)
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("chromavinyl live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func readAnalysis(path string) (*analysis.Result, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var a *analysis.Result
	if err := json.NewDecoder(r).Decode(&a); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode analysis %s: %w", path, err)
	}
	return a, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := readAnalysis(args[0])
	if err != nil {
		return err
	}
	category := mood.Classify(a)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"category": category,
		"style":    style.For(category, a.AverageBrightness()),
	})
}

func runStyles(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSTYLE\tTEMPO\tLEAD\tBASS\tDRUMS")
	for _, d := range style.Catalog(brightness) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", d.Category, d.Name, d.Tempo, d.LeadInstrument, d.BassPattern, d.DrumStyle)
	}
	return tw.Flush()
}

// readyOutput is always available; offline rendering has no device to wait for.
type readyOutput struct{}

func (readyOutput) Acquire(context.Context) error { return nil }

func runRender(cmd *cobra.Command, args []string) error {
	a, err := readAnalysis(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	sess := session.New(readyOutput{}, audio.SampleRate, 1)
	sum, err := sess.Start(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer sess.Stop()

	frames := int(seconds * float64(time.Second) / float64(audio.FrameDuration))
	frame := make([]int16, audio.FrameSamples)
	for range frames {
		sess.Render(frame)
		if _, err := out.Write(audio.SamplesToBytes(frame)); err != nil {
			return fmt.Errorf("write pcm: %w", err)
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Rendered %.1fs of %s (%s, %d BPM)\n", seconds, sum.StyleName, sum.Category, sum.Tempo)
	return nil
}
