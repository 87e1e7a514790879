package transition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio payload"), 0644); err != nil {
		t.Fatalf("couldn't write audio file: %v", err)
	}
	return path
}

func TestRunFailMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &Config{
		Host:   server.URL,
		Input1: writeAudio(t, "a.mp3"),
		Input2: writeAudio(t, "b.mp3"),
		Style:  "smooth",
		Output: filepath.Join(t.TempDir(), "transition.wav"),
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

func TestValidate(t *testing.T) {
	a := writeAudio(t, "a.mp3")
	b := writeAudio(t, "b.mp3")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  &Config{Input1: a, Input2: b, Style: "smooth", Output: "out.wav"},
		},
		{
			name: "valid with duration",
			cfg:  &Config{Input1: a, Input2: b, Style: "harmonic", Duration: 8 * time.Second, Output: "out.wav"},
		},
		{
			name:    "missing second input",
			cfg:     &Config{Input1: a, Style: "smooth", Output: "out.wav"},
			wantErr: true,
		},
		{
			name: "same file twice is allowed",
			cfg:  &Config{Input1: a, Input2: a, Style: "smooth", Output: "out.wav"},
		},
		{
			name:    "missing file on disk",
			cfg:     &Config{Input1: a, Input2: filepath.Join(t.TempDir(), "nope.mp3"), Style: "smooth", Output: "out.wav"},
			wantErr: true,
		},
		{
			name:    "invalid style",
			cfg:     &Config{Input1: a, Input2: b, Style: "dramatic", Output: "out.wav"},
			wantErr: true,
		},
		{
			name:    "missing output",
			cfg:     &Config{Input1: a, Input2: b, Style: "sudden"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}
