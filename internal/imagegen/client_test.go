package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateDecodesImage(t *testing.T) {
	png := []byte("\x89PNG fake image bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("Authorization = %q", got)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Prompt != "a fox sticker" {
			t.Errorf("Prompt = %q", req.Prompt)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer ts.Close()

	c := NewClient("key-1", ts.URL, "gpt-image-1", "1024x1024")
	got, err := c.Generate(context.Background(), "a fox sticker")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(got) != string(png) {
		t.Errorf("decoded image mismatch")
	}
}

func TestGenerateAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"prompt rejected"}}`))
	}))
	defer ts.Close()

	c := NewClient("key-1", ts.URL, "gpt-image-1", "1024x1024")
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestGenerateEmptyData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	c := NewClient("key-1", ts.URL, "gpt-image-1", "1024x1024")
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
