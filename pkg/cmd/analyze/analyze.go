package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/igolaizola/sonetra/pkg/engine"
	"github.com/igolaizola/sonetra/pkg/filestore"
	"github.com/igolaizola/sonetra/pkg/sound"
	"github.com/igolaizola/sonetra/pkg/storage"
	"github.com/oklog/ulid/v2"
)

// FailMessage is the user-facing error shown when analysis fails. The
// underlying cause goes to the log, not to the user.
const FailMessage = "Failed to analyze audio"

type Config struct {
	Debug  bool
	DBType string
	DBConn string
	Proxy  string
	Wait   time.Duration

	FSType string
	FSConn string

	Host    string
	Input   string
	TrackID string
	Plot    string
	RMS     string
}

// Run analyzes an audio file using the backend service, prints the
// summary and optionally caches the result and renders waveform and
// level plots.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("analyze: started")
	defer log.Println("analyze: ended")

	debug := func(format string, args ...any) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.Input == "" {
		return errors.New("analyze: input file is required")
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return fmt.Errorf("analyze: couldn't find input file: %w", err)
	}

	var store *storage.Store
	if cfg.DBType != "" {
		candidate, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("analyze: couldn't create orm store: %w", err)
		}
		if err := candidate.Start(ctx); err != nil {
			return fmt.Errorf("analyze: couldn't start orm store: %w", err)
		}
		store = candidate
	}
	if cfg.TrackID != "" {
		if store == nil {
			return errors.New("analyze: db type is required to cache by track id")
		}
		if _, err := store.GetTrack(ctx, cfg.TrackID); err != nil {
			return fmt.Errorf("analyze: couldn't get track %s: %w", cfg.TrackID, err)
		}
	}

	// Flag wins, then the stored engine-host setting, then the default.
	host := cfg.Host
	if host == "" && store != nil {
		v, err := store.SettingValue(ctx, storage.SettingEngineHost)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		host = v
	}

	client := engine.New(&engine.Config{
		Host:  host,
		Wait:  cfg.Wait,
		Debug: cfg.Debug,
		Proxy: cfg.Proxy,
	})

	analysis, err := client.Analyze(ctx, cfg.Input)
	if err != nil {
		log.Printf("analyze: %v\n", err)
		return errors.New(FailMessage)
	}
	debug("analyze: %s tempo=%.1f key=%s", cfg.Input, analysis.Tempo, analysis.Key)

	for _, line := range analysis.Summary() {
		fmt.Println(line)
	}

	if cfg.Plot != "" || cfg.RMS != "" {
		if err := renderPlots(ctx, cfg); err != nil {
			return err
		}
	}

	if cfg.TrackID != "" {
		if err := cache(ctx, store, cfg.TrackID, analysis); err != nil {
			return err
		}
		log.Printf("analyze: result cached for track %s\n", cfg.TrackID)
	}
	return nil
}

func renderPlots(ctx context.Context, cfg *Config) error {
	analyzer, err := sound.NewAnalyzer(cfg.Input)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if cfg.Plot != "" {
		b, err := analyzer.PlotWave(filepath.Base(cfg.Input))
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		if err := os.WriteFile(cfg.Plot, b, 0644); err != nil {
			return fmt.Errorf("analyze: couldn't write waveform: %w", err)
		}
		log.Printf("analyze: waveform written to %s\n", cfg.Plot)
		if cfg.TrackID != "" && cfg.FSType != "" {
			fstore, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Debug)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			if err := fstore.SetWave(ctx, cfg.Plot, cfg.TrackID); err != nil {
				return fmt.Errorf("analyze: couldn't store waveform: %w", err)
			}
			log.Printf("analyze: waveform stored for track %s\n", cfg.TrackID)
		}
	}
	if cfg.RMS != "" {
		b, err := analyzer.PlotRMS()
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		if err := os.WriteFile(cfg.RMS, b, 0644); err != nil {
			return fmt.Errorf("analyze: couldn't write levels plot: %w", err)
		}
		log.Printf("analyze: levels written to %s\n", cfg.RMS)
	}
	return nil
}

func cache(ctx context.Context, store *storage.Store, trackID string, analysis *engine.Analysis) error {
	beats, err := json.Marshal(analysis.Beats)
	if err != nil {
		return fmt.Errorf("analyze: couldn't marshal beats: %w", err)
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("analyze: couldn't marshal analysis: %w", err)
	}
	record := &storage.Analysis{
		ID:               ulid.Make().String(),
		TrackID:          trackID,
		Tempo:            analysis.Tempo,
		Key:              analysis.Key,
		Scale:            analysis.Scale,
		Energy:           analysis.Energy,
		SpectralCentroid: analysis.SpectralCentroid,
		Beats:            string(beats),
		Raw:              string(raw),
	}
	if err := store.SetAnalysis(ctx, record); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	track, err := store.GetTrack(ctx, trackID)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	track.AnalysisID = &record.ID
	if err := store.SetTrack(ctx, track); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}
