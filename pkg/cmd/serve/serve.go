package serve

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/sonetra/pkg/engine"
	"github.com/igolaizola/sonetra/pkg/filestore"
	"github.com/igolaizola/sonetra/pkg/sound"
	"github.com/igolaizola/sonetra/pkg/storage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	FSType string
	FSConn string

	Addr        string
	Credentials map[string]string
}

//go:embed fixtures.yaml
var fixturesContent embed.FS

// Insight is a static sample shown by the dashboard. These are
// presentation placeholders, not the output of a model.
type Insight struct {
	Track      string  `yaml:"track" json:"track"`
	Genre      string  `yaml:"genre" json:"genre"`
	Mood       string  `yaml:"mood" json:"mood"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	Comment    string  `yaml:"comment" json:"comment"`
}

// cannedAnalysis is the deterministic payload of the mock analyze
// endpoint.
var cannedAnalysis = map[string]any{
	"beats":             []float64{1.2, 2.4, 3.6, 4.8, 6.0, 7.2, 8.4, 9.6},
	"key":               "C",
	"scale":             "Major",
	"tempo":             128.5,
	"energy":            0.78,
	"spectral_centroid": 2150.5,
	"danceability":      0.82,
	"valence":           0.65,
	"loudness":          -8.5,
	"acousticness":      0.15,
	"instrumentalness":  0.05,
	"liveness":          0.12,
	"speechiness":       0.08,
}

// Serve starts the dev backend. It implements the platform HTTP
// contract with deterministic payloads so clients can be exercised
// without the real analysis service.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("serve: server started")
	defer log.Println("serve: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	var store *storage.Store
	if cfg.DBType != "" {
		candidate, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("serve: couldn't create orm store: %w", err)
		}
		if err := candidate.Start(ctx); err != nil {
			return fmt.Errorf("serve: couldn't start orm store: %w", err)
		}
		store = candidate
	}

	var fstore *filestore.Store
	if cfg.FSType != "" {
		candidate, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("serve: couldn't create file store: %w", err)
		}
		fstore = candidate
	}

	handler, err := Handler(store, fstore, cfg.Credentials, debug)
	if err != nil {
		return err
	}

	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("serve: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("serve: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: handler,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// Handler builds the router. It is exported so tests can hit the exact
// endpoints via httptest.
func Handler(store *storage.Store, fstore *filestore.Store, credentials map[string]string, debug func(string, ...interface{})) (http.Handler, error) {
	if debug == nil {
		debug = func(string, ...interface{}) {}
	}

	b, err := fixturesContent.ReadFile("fixtures.yaml")
	if err != nil {
		return nil, fmt.Errorf("serve: couldn't load fixtures: %w", err)
	}
	var insights []Insight
	if err := yaml.Unmarshal(b, &insights); err != nil {
		return nil, fmt.Errorf("serve: couldn't parse fixtures: %w", err)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if len(credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", credentials))
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			debug("serve: couldn't encode response: %v", err)
		}
	}

	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "SONETRA - AI Powered Music Platform API",
			"status":  "running",
		})
	})

	mux.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"message": "SONETRA API is running",
		})
	})

	mux.Post("/api/analyze/track", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field is required", http.StatusBadRequest)
			return
		}
		debug("serve: analyze %s", header.Filename)
		writeJSON(w, http.StatusOK, cannedAnalysis)
	})

	mux.Post("/api/transition/create", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, field := range []string{"file1", "file2"} {
			if _, _, err := r.FormFile(field); err != nil {
				http.Error(w, fmt.Sprintf("%s field is required", field), http.StatusBadRequest)
				return
			}
		}
		style := r.FormValue("style")
		if style == "" {
			style = engine.StyleSmooth
		}
		if !engine.ValidStyle(style) {
			http.Error(w, fmt.Sprintf("invalid style %q", style), http.StatusBadRequest)
			return
		}
		duration := parseDuration(r.FormValue("duration"), 2*time.Second)
		debug("serve: transition style=%s duration=%s", style, duration)
		writeWAV(w, "transition.wav", transitionTone(style), duration)
	})

	mux.Post("/api/style/transfer", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "file field is required", http.StatusBadRequest)
			return
		}
		target := r.FormValue("target_style")
		if target == "" {
			target = "electronic"
		}
		debug("serve: transfer target=%s", target)
		writeWAV(w, "styled.wav", 440, 2*time.Second)
	})

	mux.Get("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, insights)
	})

	if store != nil {
		mux.Get("/api/tracks", func(w http.ResponseWriter, r *http.Request) {
			page, err := strconv.Atoi(r.URL.Query().Get("page"))
			if err != nil {
				page = 1
			}
			size, err := strconv.Atoi(r.URL.Query().Get("size"))
			if err != nil {
				size = 100
			}
			tracks, err := store.ListTracks(r.Context(), page, size, "id desc")
			if err != nil {
				log.Println("couldn't list tracks:", err)
				http.Error(w, fmt.Sprintf("couldn't list tracks: %v", err), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, tracks)
		})
	}

	if fstore != nil {
		mux.Get("/api/tracks/{id}/wave", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			tmp, err := os.CreateTemp("", "wave-*.jpg")
			if err != nil {
				http.Error(w, fmt.Sprintf("couldn't create temp file: %v", err), http.StatusInternalServerError)
				return
			}
			tmp.Close()
			defer os.Remove(tmp.Name())
			if err := fstore.GetWave(r.Context(), tmp.Name(), id); err != nil {
				debug("serve: couldn't get wave for %s: %v", id, err)
				http.Error(w, "waveform not found", http.StatusNotFound)
				return
			}
			b, err := os.ReadFile(tmp.Name())
			if err != nil {
				http.Error(w, fmt.Sprintf("couldn't read waveform: %v", err), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(b)
		})
	}

	return mux, nil
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return fallback
	}
	d := time.Duration(seconds * float64(time.Second))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// transitionTone maps each style tag to its own pitch so payloads stay
// deterministic but distinguishable.
func transitionTone(style string) float64 {
	switch style {
	case engine.StyleSudden:
		return 440
	case engine.StyleHarmonic:
		return 550
	default:
		return 330
	}
}

const wavRate = 8000

func writeWAV(w http.ResponseWriter, name string, freq float64, duration time.Duration) {
	b := sound.EncodeWAV(sound.Tone(freq, duration, wavRate), wavRate)
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}
