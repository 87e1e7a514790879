package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/igolaizola/sonetra/pkg/engine"
)

// FailMessage is the user-facing error shown when the style transfer
// fails. The underlying cause goes to the log, not to the user.
const FailMessage = "Failed to transfer style"

type Config struct {
	Debug bool
	Proxy string
	Wait  time.Duration

	Host      string
	Input     string
	Style     string
	Intensity float64
	Output    string
}

// Run renders an audio file in a target style using the backend service
// and writes the resulting WAV payload.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("transfer: started")
	defer log.Println("transfer: ended")

	debug := func(format string, args ...any) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.Input == "" {
		return errors.New("transfer: input file is required")
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return fmt.Errorf("transfer: couldn't find input file: %w", err)
	}
	if cfg.Style == "" {
		return errors.New("transfer: target style is required")
	}
	if cfg.Intensity < 0 || cfg.Intensity > 1 {
		return errors.New("transfer: intensity must be between 0 and 1")
	}
	if cfg.Output == "" {
		return errors.New("transfer: output file is required")
	}

	client := engine.New(&engine.Config{
		Host:  cfg.Host,
		Wait:  cfg.Wait,
		Debug: cfg.Debug,
		Proxy: cfg.Proxy,
	})

	b, err := client.Transfer(ctx, cfg.Input, cfg.Style, cfg.Intensity)
	if err != nil {
		log.Printf("transfer: %v\n", err)
		return errors.New(FailMessage)
	}
	debug("transfer: received %d bytes", len(b))

	if err := os.WriteFile(cfg.Output, b, 0644); err != nil {
		return fmt.Errorf("transfer: couldn't write output: %w", err)
	}
	log.Printf("transfer: written to %s\n", cfg.Output)
	return nil
}
