package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunFailMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	input := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(input, []byte("fake audio payload"), 0644); err != nil {
		t.Fatalf("couldn't write audio file: %v", err)
	}
	cfg := &Config{
		Host:   server.URL,
		Input:  input,
		Style:  "jazz",
		Output: filepath.Join(t.TempDir(), "styled.wav"),
		Wait:   time.Millisecond,
	}
	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() err = nil; want error")
	}
	// The user sees the fixed message, not the transport error
	if err.Error() != FailMessage {
		t.Fatalf("Run() err = %q; want %q", err.Error(), FailMessage)
	}
}
