package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LIBRARY_"

// Config defines the app configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	Store    string `yaml:"store"`
	DBPath   string `yaml:"db_path"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	Room     struct {
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
		Rows     int    `yaml:"rows"`
		Columns  int    `yaml:"columns"`
		Opens    string `yaml:"opens"`
		Closes   string `yaml:"closes"`
	} `yaml:"room"`
	Admin struct {
		Name      string `yaml:"name"`
		Identity  string `yaml:"identity"`
		Email     string `yaml:"email"`
		Phone     string `yaml:"phone"`
		BirthDate string `yaml:"birth_date"`
		Address   string `yaml:"address"`
	} `yaml:"admin"`
}

// Default is the configuration used when nothing else is provided.
func Default() Config {
	var c Config
	c.DataDir = "data"
	c.Store = "json"
	c.LogLevel = "info"
	c.Room.Name = "Main Reading Room"
	c.Room.Location = "Ground floor"
	c.Room.Rows = 5
	c.Room.Columns = 8
	c.Room.Opens = "08:00"
	c.Room.Closes = "20:00"
	c.Admin.Name = "System Administrator"
	c.Admin.Identity = "0000000000000"
	c.Admin.Email = "admin@library.local"
	c.Admin.Phone = "00000000"
	c.Admin.BirthDate = "1980-01-01"
	c.Admin.Address = "Main Library"
	return c
}

// Load layers the YAML file at path, the dotenv file at envFile and LIBRARY_*
// environment variables over the defaults. Missing files are skipped.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":         &c.DataDir,
		"STORE":            &c.Store,
		"DB_PATH":          &c.DBPath,
		"LOG_FILE":         &c.LogFile,
		"LOG_LEVEL":        &c.LogLevel,
		"ROOM_NAME":        &c.Room.Name,
		"ROOM_LOCATION":    &c.Room.Location,
		"ROOM_OPENS":       &c.Room.Opens,
		"ROOM_CLOSES":      &c.Room.Closes,
		"ADMIN_NAME":       &c.Admin.Name,
		"ADMIN_IDENTITY":   &c.Admin.Identity,
		"ADMIN_EMAIL":      &c.Admin.Email,
		"ADMIN_PHONE":      &c.Admin.Phone,
		"ADMIN_BIRTH_DATE": &c.Admin.BirthDate,
		"ADMIN_ADDRESS":    &c.Admin.Address,
	}
	for name, field := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"ROOM_ROWS":    &c.Room.Rows,
		"ROOM_COLUMNS": &c.Room.Columns,
	}
	for name, field := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*field = n
	}
	return nil
}

// Validate checks the values that have a fixed set of choices or a format.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be provided"))
	}
	if c.Store != "json" && c.Store != "sqlite" {
		errs = append(errs, fmt.Errorf("store must be json or sqlite, got %q", c.Store))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Room.Rows <= 0 || c.Room.Columns <= 0 {
		errs = append(errs, errors.New("room rows and columns must be positive"))
	}
	for _, clock := range []string{c.Room.Opens, c.Room.Closes} {
		if _, err := time.Parse("15:04", clock); err != nil {
			errs = append(errs, fmt.Errorf("room hours must look like 08:00, got %q", clock))
		}
	}
	if _, err := c.AdminBirthDate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel maps log_level to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// AdminBirthDate parses admin.birth_date as YYYY-MM-DD.
func (c Config) AdminBirthDate() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, c.Admin.BirthDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("admin.birth_date: %w", err)
	}
	return t, nil
}

func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "library.db")
}

func (c Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "library.log")
}
