package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/sonetra/pkg/filestore"
	"github.com/igolaizola/sonetra/pkg/storage"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
	Limit  int

	FSType string
	FSConn string

	Input string
	ID    string
	Page  int
	Size  int
}

// entry is a batch import row, either from a JSON array or a CSV file.
type entry struct {
	Path string `json:"path" csv:"path"`
	Name string `json:"name" csv:"name"`
}

// Audio extensions accepted into the library.
var extensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".aiff": true,
}

// Add uploads one file or a batch manifest (.json or .csv) into the
// library. Each upload gets a fresh ID, adding the same file twice
// creates two tracks.
func Add(ctx context.Context, cfg *Config) error {
	var count int
	log.Println("library: add started")
	defer func() {
		log.Printf("library: add ended (%d)\n", count)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.Input == "" {
		return errors.New("library: input file is required")
	}

	store, fstore, err := stores(ctx, cfg)
	if err != nil {
		return err
	}

	entries, err := loadEntries(cfg.Input)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if cfg.Limit > 0 && count >= cfg.Limit {
			break
		}
		js, _ := json.Marshal(e)
		debug("library: %s", string(js))
		if _, err := add(ctx, store, fstore, e.Path, e.Name); err != nil {
			return err
		}
		count++
	}
	return nil
}

// Remove deletes a track and its stored payload.
func Remove(ctx context.Context, cfg *Config) error {
	log.Println("library: remove started")
	defer log.Println("library: remove ended")

	if cfg.ID == "" {
		return errors.New("library: track id is required")
	}
	store, fstore, err := stores(ctx, cfg)
	if err != nil {
		return err
	}
	track, err := store.GetTrack(ctx, cfg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Removing an unknown id is a no-op
		log.Printf("library: track %s not found\n", cfg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := fstore.DeleteAudio(ctx, track.Ref); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := store.DeleteTrack(ctx, cfg.ID); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	return nil
}

// List prints the tracks in the library, newest first.
func List(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("library: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("library: couldn't start orm store: %w", err)
	}
	page := cfg.Page
	if page < 1 {
		page = 1
	}
	size := cfg.Size
	if size < 1 {
		size = 100
	}
	tracks, err := store.ListTracks(ctx, page, size, "id desc")
	if err != nil {
		return fmt.Errorf("library: %w", err)
	}
	for _, t := range tracks {
		line := fmt.Sprintf("%s  %s  %s", t.ID, humanSize(t.Size), t.Name)
		if t.Analysis != nil {
			line += fmt.Sprintf("  [%.1f BPM %s %s]", t.Analysis.Tempo, t.Analysis.Key, strings.ToLower(t.Analysis.Scale))
		}
		fmt.Println(line)
	}
	return nil
}

func stores(ctx context.Context, cfg *Config) (*storage.Store, *filestore.Store, error) {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("library: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("library: couldn't start orm store: %w", err)
	}
	fsType := cfg.FSType
	if fsType == "" {
		v, err := store.SettingValue(ctx, storage.SettingDefaultFS)
		if err != nil {
			return nil, nil, fmt.Errorf("library: %w", err)
		}
		fsType = v
	}
	if fsType == "" {
		fsType = "local"
	}
	fstore, err := filestore.New(fsType, cfg.FSConn, cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("library: couldn't create file store: %w", err)
	}
	return store, fstore, nil
}

// loadEntries turns the input into a batch: a manifest file expands to
// its rows, an audio file is a batch of one.
func loadEntries(input string) ([]*entry, error) {
	ext := strings.ToLower(filepath.Ext(input))
	if extensions[ext] {
		return []*entry{{Path: input}}, nil
	}
	b, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("library: couldn't read input file: %w", err)
	}
	var unmarshal func([]byte) ([]*entry, error)
	switch ext {
	case ".json":
		unmarshal = func(b []byte) ([]*entry, error) {
			var es []*entry
			if err := json.Unmarshal(b, &es); err != nil {
				return nil, fmt.Errorf("couldn't unmarshal entries: %w", err)
			}
			return es, nil
		}
	case ".csv":
		unmarshal = func(b []byte) ([]*entry, error) {
			var es []*entry
			if err := gocsv.UnmarshalBytes(b, &es); err != nil {
				return nil, fmt.Errorf("couldn't unmarshal entries: %w", err)
			}
			return es, nil
		}
	default:
		return nil, fmt.Errorf("library: unsupported input format: %s", ext)
	}
	entries, err := unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("library: couldn't unmarshal input: %w", err)
	}
	return entries, nil
}

func add(ctx context.Context, store *storage.Store, fstore *filestore.Store, path, name string) (*storage.Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !extensions[ext] {
		return nil, fmt.Errorf("library: unsupported audio format: %s", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("library: couldn't stat %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	id := ulid.Make().String()
	ref := filestore.Ref(id, ext)
	if err := fstore.SetAudio(ctx, path, ref); err != nil {
		return nil, fmt.Errorf("library: couldn't upload %s: %w", path, err)
	}
	track := &storage.Track{
		ID:   id,
		Name: name,
		Ref:  ref,
		Size: info.Size(),
	}
	if err := store.SetTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("library: couldn't set track: %w", err)
	}
	return track, nil
}

// humanSize formats a byte count the way the track listing shows it.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
