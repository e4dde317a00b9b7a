package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing audio file: %v", err)
		}
		audio, _ := io.ReadAll(file)
		if string(audio) != "RIFF-audio" {
			t.Errorf("audio payload = %q", audio)
		}

		_, _ = w.Write([]byte(`{"text":"a fox wearing sunglasses"}`))
	}))
	defer ts.Close()

	c := NewClient("key-1", ts.URL, "whisper-1", "en")
	text, err := c.Transcribe(context.Background(), []byte("RIFF-audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "a fox wearing sunglasses" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer ts.Close()

	c := NewClient("bad", ts.URL, "whisper-1", "en")
	if _, err := c.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
