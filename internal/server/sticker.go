package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

// maxAudioBytes caps the uploaded speech sample.
const maxAudioBytes = 15 << 20

// Transcriber converts an audio sample to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ImageGenerator renders a prompt into image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// stickerPrompt frames the transcript so the generator produces
// printable die-cut artwork instead of a photo.
func stickerPrompt(transcript string) string {
	return "A die-cut sticker illustration of " + strings.TrimSpace(transcript) +
		", bold outlines, flat colors, white background"
}

// HandleSticker is the voice pipeline: audio upload, transcription,
// image generation, then a queued background print. The generated
// image is always returned to the caller; a failed or skipped print
// never changes the response.
func (s *Server) HandleSticker(transcriber Transcriber, generator ImageGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.limiter.Allow(r.RemoteAddr) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		audio, err := readAudio(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := r.Context()

		transcript, err := transcriber.Transcribe(ctx, audio)
		if err != nil {
			log.Printf("[STICKER] ❌ Transcription failed: %v", err)
			http.Error(w, "Transcription failed", http.StatusBadGateway)
			return
		}
		if strings.TrimSpace(transcript) == "" {
			http.Error(w, "No speech recognized", http.StatusUnprocessableEntity)
			return
		}
		log.Printf("[STICKER] 🎤 Transcript: %q", transcript)

		image, err := generator.Generate(ctx, stickerPrompt(transcript))
		if err != nil {
			log.Printf("[STICKER] ❌ Image generation failed: %v", err)
			http.Error(w, "Image generation failed", http.StatusBadGateway)
			return
		}

		job := &PrintJob{
			ID:      uuid.New().String(),
			Image:   image,
			Printer: s.cfg.DefaultPrinter,
			Options: cups.PrintOptions{
				Media:     s.cfg.Media,
				FitToPage: true,
			},
			Prompt:     transcript,
			ReceivedAt: time.Now(),
		}

		// Non-blocking enqueue: a full queue or a later print failure
		// must not cost the user their image.
		select {
		case s.jobQueue <- job:
			log.Printf("[STICKER] 📥 Print job %s queued for %q", job.ID, transcript)
		default:
			log.Printf("[STICKER] ⚠️ Queue full, sticker %s returned unprinted", job.ID)
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Job-Id", job.ID)
		w.Header().Set("X-Prompt", transcript)
		_, _ = w.Write(image)
	}
}

// readAudio extracts the uploaded sample from a multipart "audio"
// field or, for bare uploads, the request body.
func readAudio(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxAudioBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			return nil, errBadUpload("parsing upload: " + err.Error())
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			return nil, errBadUpload("missing 'audio' field")
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			return nil, errBadUpload("reading upload: " + err.Error())
		}
		if len(audio) == 0 {
			return nil, errBadUpload("empty audio upload")
		}
		return audio, nil
	}

	audio, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errBadUpload("reading body: " + err.Error())
	}
	if len(audio) == 0 {
		return nil, errBadUpload("empty audio upload")
	}
	return audio, nil
}

type errBadUpload string

func (e errBadUpload) Error() string { return string(e) }

// HandlePrinters serves the current discovery result as JSON.
func (s *Server) HandlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	printers, err := s.registry.ListPrinters(r.Context())
	if err != nil {
		log.Printf("[HTTP] ❌ Printer listing failed: %v", err)
		http.Error(w, "Printer discovery failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Printers []cups.Printer `json:"printers"`
		Summary  cups.Summary   `json:"summary"`
	}{
		Printers: printers,
		Summary:  cups.Summarize(printers),
	})
}
