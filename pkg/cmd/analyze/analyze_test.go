package analyze

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/igolaizola/sonetra/pkg/storage"
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
		Host:  server.URL,
		Input: writeAudio(t, "track.mp3"),
		Wait:  time.Millisecond,
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

func TestRunEngineHostSetting(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tempo":128.5,"key":"C","scale":"Major"}`))
	}))
	defer server.Close()

	ctx := context.Background()
	dbConn := filepath.Join(t.TempDir(), "sonetra.db")
	store, err := storage.New("sqlite", dbConn, false)
	if err != nil {
		t.Fatalf("couldn't create orm store: %v", err)
	}
	if err := store.Start(ctx); err != nil {
		t.Fatalf("couldn't start orm store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("couldn't migrate orm store: %v", err)
	}
	if err := store.SetSetting(ctx, &storage.Setting{ID: storage.SettingEngineHost, Value: server.URL}); err != nil {
		t.Fatalf("couldn't set setting: %v", err)
	}

	// No -host flag: the stored engine-host setting drives the request
	cfg := &Config{
		DBType: "sqlite",
		DBConn: dbConn,
		Input:  writeAudio(t, "track.mp3"),
		Wait:   time.Millisecond,
	}
	if err := Run(ctx, cfg); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if hits != 1 {
		t.Fatalf("backend hits = %d; want 1", hits)
	}
}
