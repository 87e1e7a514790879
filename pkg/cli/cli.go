package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/sonetra/pkg/cmd/analyze"
	"github.com/igolaizola/sonetra/pkg/cmd/library"
	"github.com/igolaizola/sonetra/pkg/cmd/migrate"
	"github.com/igolaizola/sonetra/pkg/cmd/serve"
	"github.com/igolaizola/sonetra/pkg/cmd/setting"
	"github.com/igolaizola/sonetra/pkg/cmd/transfer"
	"github.com/igolaizola/sonetra/pkg/cmd/transition"
	"github.com/igolaizola/sonetra/pkg/engine"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("sonetra", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sonetra [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newSettingCommand(),
			newServeCommand(),
			newAddCommand(),
			newRemoveCommand(),
			newListCommand(),
			newAnalyzeCommand(),
			newTransitionCommand(),
			newTransferCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "sonetra version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("SONETRA"),
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "run database migrations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newSettingCommand() *ffcli.Command {
	cmd := "setting"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &setting.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Name, "name", "", "setting name")
	fs.StringVar(&cfg.Value, "value", "", "value to set")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "store a setting value",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return setting.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "file storage type for waveform images (local, s3)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "folder for local, key:secret@bucket.region for s3")
	fs.StringVar(&cfg.Addr, "addr", "localhost:8001", "address to listen on")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "basic auth credentials (semicolon separated) Example: user1:pass1;user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "start the dev backend server",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve.Serve(ctx, cfg)
		},
	}
}

func newAddCommand() *ffcli.Command {
	cmd := "add"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &library.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "file storage type (local, s3; default: the default-fs setting, then local)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "folder for local, key:secret@bucket.region for s3")
	fs.StringVar(&cfg.Input, "input", "", "audio file or batch manifest (.json, .csv)")
	fs.IntVar(&cfg.Limit, "limit", 0, "max number of uploads (0 for no limit)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "upload audio files to the library",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return library.Add(ctx, cfg)
		},
	}
}

func newRemoveCommand() *ffcli.Command {
	cmd := "remove"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &library.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "file storage type (local, s3; default: the default-fs setting, then local)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "folder for local, key:secret@bucket.region for s3")
	fs.StringVar(&cfg.ID, "id", "", "track id")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "remove a track from the library",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return library.Remove(ctx, cfg)
		},
	}
}

func newListCommand() *ffcli.Command {
	cmd := "list"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &library.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Size, "size", 100, "page size")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "list library tracks",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return library.List(ctx, cfg)
		},
	}
}

func newAnalyzeCommand() *ffcli.Command {
	cmd := "analyze"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &analyze.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy address")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "wait time between requests")
	fs.StringVar(&cfg.FSType, "fs-type", "", "file storage type for waveform images (local, s3)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "folder for local, key:secret@bucket.region for s3")
	fs.StringVar(&cfg.Host, "host", "", "backend host (default: the engine-host setting, then "+engine.DefaultHost+")")
	fs.StringVar(&cfg.Input, "input", "", "input audio file")
	fs.StringVar(&cfg.TrackID, "id", "", "track id to cache the result (optional)")
	fs.StringVar(&cfg.Plot, "plot", "", "waveform output file (optional)")
	fs.StringVar(&cfg.RMS, "rms", "", "levels plot output file (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "analyze an audio file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return analyze.Run(ctx, cfg)
		},
	}
}

func newTransitionCommand() *ffcli.Command {
	cmd := "transition"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &transition.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy address")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "wait time between requests")
	fs.StringVar(&cfg.Host, "host", engine.DefaultHost, "backend host")
	fs.StringVar(&cfg.Input1, "input1", "", "first audio file")
	fs.StringVar(&cfg.Input2, "input2", "", "second audio file")
	fs.StringVar(&cfg.Style, "style", engine.StyleSmooth, fmt.Sprintf("transition style (%s)", strings.Join(engine.Styles(), ", ")))
	fs.DurationVar(&cfg.Duration, "duration", 0, "transition duration (optional)")
	fs.StringVar(&cfg.Output, "output", "transition.wav", "output file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create a transition between two audio files",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return transition.Run(ctx, cfg)
		},
	}
}

func newTransferCommand() *ffcli.Command {
	cmd := "transfer"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &transfer.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy address")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "wait time between requests")
	fs.StringVar(&cfg.Host, "host", engine.DefaultHost, "backend host")
	fs.StringVar(&cfg.Input, "input", "", "input audio file")
	fs.StringVar(&cfg.Style, "target-style", "", "target style")
	fs.Float64Var(&cfg.Intensity, "intensity", 0, "style intensity between 0 and 1 (optional)")
	fs.StringVar(&cfg.Output, "output", "styled.wav", "output file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonetra %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "render an audio file in a target style",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return transfer.Run(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
