package setting

import (
	"context"
	"fmt"

	"github.com/igolaizola/sonetra/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Name  string
	Value string
}

// Known setting names. Anything else is rejected so typos don't create
// dead entries.
var names = map[string]bool{
	storage.SettingEngineHost:  true,
	storage.SettingEngineToken: true,
	storage.SettingDefaultFS:   true,
}

func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("setting: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("setting: couldn't start orm store: %w", err)
	}

	if cfg.Name == "" {
		return fmt.Errorf("setting: name is empty")
	}
	if !names[cfg.Name] {
		return fmt.Errorf("setting: unknown name: %s", cfg.Name)
	}
	if cfg.Value == "" {
		return fmt.Errorf("setting: value is empty")
	}

	s := storage.Setting{
		ID:    cfg.Name,
		Value: cfg.Value,
	}
	if err := store.SetSetting(ctx, &s); err != nil {
		return fmt.Errorf("setting: couldn't save setting: %w", err)
	}
	return nil
}
