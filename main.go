package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"library-desk/config"
	"library-desk/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	envFile    string
	dataDir    string
	store      string
	logLevel   string
}

// app bundles what every command needs once configuration is resolved.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	mgr     *library.LibraryManager
	closers []io.Closer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "library-desk",
		Short:         "Front desk console for a small library",
		Long:          "Tracks students, books, loans, staff and the reading room. Without a subcommand it starts the interactive menu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return report(err)
			}
			defer a.Close()
			return report(runConsole(a, os.Stdin))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "library.yaml", "YAML configuration file (skipped when missing)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with LIBRARY_* overrides (skipped when missing)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory for snapshots and logs")
	pf.StringVar(&flags.store, "store", "", "snapshot store: json or sqlite")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newReportCmd(flags),
		newSearchCmd(flags),
		newLoansCmd(flags),
		newValidateCmd(flags),
	)
	return root
}

func report(err error) error {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return cfg, err
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.store != "" {
		cfg.Store = flags.store
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, cfg.Validate()
}

// openApp resolves configuration, opens the log file and the store, and loads
// the library.
func openApp(flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, logFile)
	a.logger = logger.With("session", uuid.NewString())

	store, opts, err := openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts = append(opts, library.WithLogger(a.logger))

	room, err := newRoom(cfg)
	if err != nil {
		store.Close()
		a.Close()
		return nil, err
	}
	opts = append(opts, library.WithReadingRoom(room))

	mgr, err := library.NewLibraryManager(store, opts...)
	if err != nil {
		store.Close()
		a.Close()
		return nil, err
	}
	a.mgr = mgr
	a.closers = append([]io.Closer{mgr}, a.closers...)

	admin, created, err := mgr.EnsureDefaultAdmin(adminPerson(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}
	if created {
		fmt.Printf("Created administrator #%d (%s). Log in with identity %s.\n", admin.Number, admin.Name, admin.Identity)
	}
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.Config) (*slog.Logger, *os.File, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

func openStore(cfg config.Config) (library.Store, []library.Option, error) {
	return library.OpenStore(cfg.Store, cfg.DataDir, cfg.DatabasePath())
}

func newRoom(cfg config.Config) (*library.ReadingRoom, error) {
	opens, err := library.ParseClock(cfg.Room.Opens)
	if err != nil {
		return nil, err
	}
	closes, err := library.ParseClock(cfg.Room.Closes)
	if err != nil {
		return nil, err
	}
	return library.NewReadingRoom(cfg.Room.Name, cfg.Room.Location, cfg.Room.Rows, cfg.Room.Columns, opens, closes)
}

func adminPerson(cfg config.Config) library.Person {
	birth, _ := cfg.AdminBirthDate()
	return library.Person{
		Name:      cfg.Admin.Name,
		Identity:  cfg.Admin.Identity,
		Email:     cfg.Admin.Email,
		Phone:     cfg.Admin.Phone,
		BirthDate: birth,
		Address:   cfg.Admin.Address,
	}
}
