package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/sonetra/pkg/filestore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler, err := Handler(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("Handler() error: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func multipartBody(t *testing.T, files map[string]string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("couldn't create form file: %v", err)
		}
		if _, err := fw.Write([]byte("fake audio payload")); err != nil {
			t.Fatalf("couldn't write form file: %v", err)
		}
	}
	for field, value := range values {
		if err := w.WriteField(field, value); err != nil {
			t.Fatalf("couldn't write form field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("couldn't close form: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("couldn't get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("couldn't decode body: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q; want %q", body.Status, "healthy")
	}
}

func TestAnalyzeTrack(t *testing.T) {
	server := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"file": "song.mp3"}, nil)
	resp, err := http.Post(server.URL+"/api/analyze/track", contentType, body)
	if err != nil {
		t.Fatalf("couldn't post analyze: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	var analysis struct {
		Beats            []float64 `json:"beats"`
		Key              string    `json:"key"`
		Scale            string    `json:"scale"`
		Tempo            float64   `json:"tempo"`
		Energy           float64   `json:"energy"`
		SpectralCentroid float64   `json:"spectral_centroid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		t.Fatalf("couldn't decode analysis: %v", err)
	}
	if analysis.Tempo != 128.5 {
		t.Errorf("tempo = %v; want 128.5", analysis.Tempo)
	}
	if analysis.Key != "C" || analysis.Scale != "Major" {
		t.Errorf("key = %q %q; want C Major", analysis.Key, analysis.Scale)
	}
	if len(analysis.Beats) != 8 {
		t.Errorf("beats = %d; want 8", len(analysis.Beats))
	}
}

func TestAnalyzeTrackMissingFile(t *testing.T) {
	server := newTestServer(t)
	body, contentType := multipartBody(t, nil, map[string]string{"other": "value"})
	resp, err := http.Post(server.URL+"/api/analyze/track", contentType, body)
	if err != nil {
		t.Fatalf("couldn't post analyze: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestCreateTransition(t *testing.T) {
	server := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string]string{"file1": "a.mp3", "file2": "b.mp3"},
		map[string]string{"style": "harmonic", "duration": "1"},
	)
	resp, err := http.Post(server.URL+"/api/transition/create", contentType, body)
	if err != nil {
		t.Fatalf("couldn't post transition: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("Content-Type"); got != "audio/wav" {
		t.Errorf("content type = %q; want audio/wav", got)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("couldn't read body: %v", err)
	}
	if len(b) < 44 || string(b[:4]) != "RIFF" {
		t.Errorf("body is not a wav payload (%d bytes)", len(b))
	}
}

func TestCreateTransitionInvalidStyle(t *testing.T) {
	server := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string]string{"file1": "a.mp3", "file2": "b.mp3"},
		map[string]string{"style": "dramatic"},
	)
	resp, err := http.Post(server.URL+"/api/transition/create", contentType, body)
	if err != nil {
		t.Fatalf("couldn't post transition: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestStyleTransfer(t *testing.T) {
	server := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string]string{"file": "a.mp3"},
		map[string]string{"target_style": "jazz", "intensity": "0.5"},
	)
	resp, err := http.Post(server.URL+"/api/style/transfer", contentType, body)
	if err != nil {
		t.Fatalf("couldn't post transfer: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("couldn't read body: %v", err)
	}
	if len(b) < 44 || string(b[:4]) != "RIFF" {
		t.Errorf("body is not a wav payload (%d bytes)", len(b))
	}
}

func TestTrackWave(t *testing.T) {
	fstore, err := filestore.New("local", t.TempDir(), false)
	if err != nil {
		t.Fatalf("couldn't create file store: %v", err)
	}
	want := []byte("fake jpeg payload")
	src := filepath.Join(t.TempDir(), "wave.jpg")
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatalf("couldn't write wave file: %v", err)
	}
	if err := fstore.SetWave(context.Background(), src, "track1"); err != nil {
		t.Fatalf("couldn't store wave: %v", err)
	}

	handler, err := Handler(nil, fstore, nil, nil)
	if err != nil {
		t.Fatalf("Handler() error: %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/tracks/track1/wave")
	if err != nil {
		t.Fatalf("couldn't get wave: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("content type = %q; want image/jpeg", got)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("couldn't read body: %v", err)
	}
	if string(b) != string(want) {
		t.Errorf("body = %q; want %q", b, want)
	}

	missing, err := http.Get(server.URL + "/api/tracks/unknown/wave")
	if err != nil {
		t.Fatalf("couldn't get wave: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", missing.StatusCode, http.StatusNotFound)
	}
}

func TestInsights(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/insights")
	if err != nil {
		t.Fatalf("couldn't get insights: %v", err)
	}
	defer resp.Body.Close()
	var insights []Insight
	if err := json.NewDecoder(resp.Body).Decode(&insights); err != nil {
		t.Fatalf("couldn't decode insights: %v", err)
	}
	if len(insights) == 0 {
		t.Fatal("no insights returned")
	}
	for _, in := range insights {
		if in.Track == "" || in.Genre == "" {
			t.Errorf("incomplete insight: %+v", in)
		}
		if in.Confidence <= 0 || in.Confidence > 1 {
			t.Errorf("confidence out of range: %v", in.Confidence)
		}
	}
}
