// Package config reads the scraper configuration from an INI file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"dario.cat/mergo"
	"github.com/ProZsolt/salt"
	"gopkg.in/ini.v1"
)

// Config is read from the DEFAULT section of the file.
type Config struct {
	Username string `ini:"username"`
	Password string `ini:"password"`

	BaseURL   string `ini:"base_url"`
	LoginURL  string `ini:"login_url"`
	OutputDir string `ini:"output_dir"`

	// Month selects a single bill, formatted as YYYY-M.
	Month string `ini:"month"`
	// Since keeps the bills starting on or after a DD.MM.YYYY date.
	Since string `ini:"since"`

	SkipLoginCheck    bool          `ini:"skip_login_check"`
	SkipPaymentDetail bool          `ini:"skip_payment_detail"`
	CloudflareBypass  bool          `ini:"cloudflare_bypass"`
	Timeout           time.Duration `ini:"timeout"`
	LogLevel          string        `ini:"log_level"`
	Trace             bool          `ini:"trace"`
}

func Default() Config {
	return Config{
		OutputDir: "bills",
		Timeout:   30 * time.Second,
		LogLevel:  "info",
	}
}

func Load(path string) (Config, error) {
	var cfg Config

	file, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}
	err = file.Section(ini.DefaultSection).MapTo(&cfg)
	if err != nil {
		return cfg, err
	}
	err = mergo.Merge(&cfg, Default())
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}

	slog.Debug("config loaded", "path", path, "username", cfg.Username)
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}
	if c.Month != "" && c.Since != "" {
		errs = append(errs, errors.New("month and since are mutually exclusive"))
	}
	if _, _, _, err := c.SelectedMonth(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SinceDate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SelectedMonth parses Month. ok is false when no month is configured.
func (c Config) SelectedMonth() (year int, month time.Month, ok bool, err error) {
	if c.Month == "" {
		return 0, 0, false, nil
	}
	parts := strings.Split(c.Month, "-")
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("month %q: expected YYYY-M", c.Month)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false, fmt.Errorf("month %q: %w", c.Month, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false, fmt.Errorf("month %q: %w", c.Month, err)
	}
	if m < 1 || m > 12 {
		return 0, 0, false, fmt.Errorf("month %q: month out of range", c.Month)
	}
	return year, time.Month(m), true, nil
}

// SinceDate parses Since, the zero date means no cutoff.
func (c Config) SinceDate() (civil.Date, error) {
	if c.Since == "" {
		return civil.Date{}, nil
	}
	d, err := salt.ParseDate(c.Since)
	if err != nil {
		return civil.Date{}, fmt.Errorf("since: %w", err)
	}
	return d, nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}
