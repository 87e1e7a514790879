package transition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/igolaizola/sonetra/pkg/engine"
)

// FailMessage is the user-facing error shown when the transition can't
// be generated. The underlying cause goes to the log, not to the user.
const FailMessage = "Failed to create transition"

type Config struct {
	Debug bool
	Proxy string
	Wait  time.Duration

	Host     string
	Input1   string
	Input2   string
	Style    string
	Duration time.Duration
	Output   string
}

// Run generates a transition between two audio files using the backend
// service and writes the resulting WAV payload.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("transition: started")
	defer log.Println("transition: ended")

	debug := func(format string, args ...any) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	client := engine.New(&engine.Config{
		Host:  cfg.Host,
		Wait:  cfg.Wait,
		Debug: cfg.Debug,
		Proxy: cfg.Proxy,
	})

	b, err := client.Transition(ctx, cfg.Input1, cfg.Input2, cfg.Style, cfg.Duration)
	if err != nil {
		log.Printf("transition: %v\n", err)
		return errors.New(FailMessage)
	}
	debug("transition: received %d bytes", len(b))

	if err := os.WriteFile(cfg.Output, b, 0644); err != nil {
		return fmt.Errorf("transition: couldn't write output: %w", err)
	}
	log.Printf("transition: written to %s\n", cfg.Output)
	return nil
}

// Validate checks the configuration before any network request is
// issued.
func Validate(cfg *Config) error {
	if cfg.Input1 == "" || cfg.Input2 == "" {
		return errors.New("transition: two input files are required")
	}
	// The same file on both sides is allowed, uploads are independent
	for _, input := range []string{cfg.Input1, cfg.Input2} {
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("transition: couldn't find input file: %w", err)
		}
	}
	if !engine.ValidStyle(cfg.Style) {
		return fmt.Errorf("transition: invalid style %q (valid: %s)", cfg.Style, strings.Join(engine.Styles(), ", "))
	}
	if cfg.Duration < 0 {
		return errors.New("transition: duration must be positive")
	}
	if cfg.Output == "" {
		return errors.New("transition: output file is required")
	}
	return nil
}
