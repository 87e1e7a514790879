package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Transition styles accepted by the backend.
const (
	StyleSmooth   = "smooth"
	StyleSudden   = "sudden"
	StyleHarmonic = "harmonic"
)

var styles = []string{StyleSmooth, StyleSudden, StyleHarmonic}

// Styles returns the valid transition style tags.
func Styles() []string {
	return styles
}

func ValidStyle(style string) bool {
	for _, s := range styles {
		if s == style {
			return true
		}
	}
	return false
}

// Analysis is the result returned by the analyze endpoint. The client
// treats it as an immutable value once received.
type Analysis struct {
	Beats            []float64 `json:"beats"`
	Key              string    `json:"key"`
	Scale            string    `json:"scale"`
	Tempo            float64   `json:"tempo"`
	Energy           float64   `json:"energy"`
	SpectralCentroid float64   `json:"spectral_centroid"`

	// Extended fields returned by newer backends.
	Danceability     float64 `json:"danceability,omitempty"`
	Valence          float64 `json:"valence,omitempty"`
	Loudness         float64 `json:"loudness,omitempty"`
	Acousticness     float64 `json:"acousticness,omitempty"`
	Instrumentalness float64 `json:"instrumentalness,omitempty"`
	Liveness         float64 `json:"liveness,omitempty"`
	Speechiness      float64 `json:"speechiness,omitempty"`
}

// Summary returns the user-facing lines for an analysis.
func (a *Analysis) Summary() []string {
	lines := []string{
		fmt.Sprintf("Tempo: %.1f BPM", a.Tempo),
		fmt.Sprintf("Key: %s %s", a.Key, strings.ToLower(a.Scale)),
		fmt.Sprintf("Energy: %.2f", a.Energy),
		fmt.Sprintf("Spectral centroid: %.1f Hz", a.SpectralCentroid),
	}
	if len(a.Beats) > 0 {
		lines = append(lines, fmt.Sprintf("Beats: %d detected", len(a.Beats)))
	}
	return lines
}

// Analyze uploads the audio file and returns its analysis. A second
// call while one is in flight returns ErrInFlight.
func (c *Client) Analyze(ctx context.Context, path string) (*Analysis, error) {
	if err := c.analyzeOp.Start(); err != nil {
		return nil, err
	}
	analysis, err := c.analyze(ctx, path)
	c.analyzeOp.Resolve(err)
	return analysis, err
}

func (c *Client) analyze(ctx context.Context, path string) (*Analysis, error) {
	f := newForm()
	if err := f.addFile("file", path); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := f.close(); err != nil {
		return nil, fmt.Errorf("engine: couldn't close form: %w", err)
	}
	var analysis Analysis
	if _, err := c.do(ctx, "POST", "api/analyze/track", f, &analysis); err != nil {
		return nil, fmt.Errorf("engine: couldn't analyze track: %w", err)
	}
	return &analysis, nil
}

// Transition uploads two audio files and returns the generated
// transition as a WAV payload. A second call while one is in flight
// returns ErrInFlight.
func (c *Client) Transition(ctx context.Context, path1, path2, style string, duration time.Duration) ([]byte, error) {
	if !ValidStyle(style) {
		return nil, fmt.Errorf("engine: invalid style %q", style)
	}
	if err := c.transitionOp.Start(); err != nil {
		return nil, err
	}
	b, err := c.transition(ctx, path1, path2, style, duration)
	c.transitionOp.Resolve(err)
	return b, err
}

func (c *Client) transition(ctx context.Context, path1, path2, style string, duration time.Duration) ([]byte, error) {
	f := newForm()
	if err := f.addFile("file1", path1); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := f.addFile("file2", path2); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := f.addValue("style", style); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if duration > 0 {
		v := strconv.FormatFloat(duration.Seconds(), 'f', -1, 64)
		if err := f.addValue("duration", v); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	if err := f.close(); err != nil {
		return nil, fmt.Errorf("engine: couldn't close form: %w", err)
	}
	b, err := c.do(ctx, "POST", "api/transition/create", f, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: couldn't create transition: %w", err)
	}
	return b, nil
}

// Transfer uploads an audio file and returns it rendered in the target
// style as a WAV payload. A second call while one is in flight returns
// ErrInFlight.
func (c *Client) Transfer(ctx context.Context, path, target string, intensity float64) ([]byte, error) {
	if err := c.transferOp.Start(); err != nil {
		return nil, err
	}
	b, err := c.transfer(ctx, path, target, intensity)
	c.transferOp.Resolve(err)
	return b, err
}

func (c *Client) transfer(ctx context.Context, path, target string, intensity float64) ([]byte, error) {
	f := newForm()
	if err := f.addFile("file", path); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := f.addValue("target_style", target); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if intensity > 0 {
		v := strconv.FormatFloat(intensity, 'f', -1, 64)
		if err := f.addValue("intensity", v); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	if err := f.close(); err != nil {
		return nil, fmt.Errorf("engine: couldn't close form: %w", err)
	}
	b, err := c.do(ctx, "POST", "api/style/transfer", f, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: couldn't transfer style: %w", err)
	}
	return b, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if _, err := c.do(ctx, "GET", "api/health", nil, &resp); err != nil {
		return fmt.Errorf("engine: couldn't get health: %w", err)
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("engine: backend status %q", resp.Status)
	}
	return nil
}
