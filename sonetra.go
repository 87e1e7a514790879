package sonetra

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/igolaizola/sonetra/pkg/engine"
)

type Config struct {
	Host  string
	Proxy string
	Wait  time.Duration
	Debug bool
}

func newClient(cfg *Config) (*engine.Client, error) {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return engine.New(&engine.Config{
		Host:   cfg.Host,
		Wait:   cfg.Wait,
		Debug:  cfg.Debug,
		Client: httpClient,
	}), nil
}

// AnalyzeTrack analyzes an audio file using the backend service.
func AnalyzeTrack(ctx context.Context, cfg *Config, input string) (*engine.Analysis, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	analysis, err := client.Analyze(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("couldn't analyze track: %w", err)
	}
	return analysis, nil
}

// CreateTransition generates a transition between two audio files and
// returns the WAV payload.
func CreateTransition(ctx context.Context, cfg *Config, input1, input2, style string, duration time.Duration) ([]byte, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	b, err := client.Transition(ctx, input1, input2, style, duration)
	if err != nil {
		return nil, fmt.Errorf("couldn't create transition: %w", err)
	}
	return b, nil
}

// TransferStyle renders an audio file in a target style and returns the
// WAV payload.
func TransferStyle(ctx context.Context, cfg *Config, input, style string, intensity float64) ([]byte, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	b, err := client.Transfer(ctx, input, style, intensity)
	if err != nil {
		return nil, fmt.Errorf("couldn't transfer style: %w", err)
	}
	return b, nil
}
