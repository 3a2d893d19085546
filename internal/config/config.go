// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/scoring"
	"github.com/pharmcheck/pharmcheck/internal/submit"
)

// EnvPrefix namespaces every variable this package reads.
const EnvPrefix = "PHARMCHECK_"

// Config holds application-wide settings. Each field maps to one
// PHARMCHECK_<env> variable.
type Config struct {
	// DBPath is the SQLite file. Empty resolves to the XDG data dir.
	DBPath string `env:"DB"`

	// BankPath is a YAML or JSON question bank. Empty uses the embedded one.
	BankPath string `env:"BANK"`

	// AssetsDir is searched for role images.
	AssetsDir string `env:"ASSETS_DIR"`

	SubmitEndpoint string        `env:"SUBMIT_ENDPOINT" validate:"omitempty,http_url"`
	SubmitTimeout  time.Duration `env:"SUBMIT_TIMEOUT" validate:"gt=0"`

	Normalization   string `env:"NORMALIZATION" validate:"oneof=max-relative share-of-total"`
	TopN            int    `env:"TOP_N" validate:"min=1,max=10"`
	RequireNickname bool   `env:"REQUIRE_NICKNAME"`

	ServerAddr string `env:"SERVER_ADDR" validate:"required,hostname_port"`

	// LogPath is where the TUI writes its log. Empty resolves to the XDG
	// state dir.
	LogPath  string `env:"LOG_PATH"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AssetsDir:       ".",
		SubmitTimeout:   submit.DefaultConfig().Timeout,
		Normalization:   string(scoring.DefaultConfig().Policy),
		TopN:            results.DefaultTopN,
		RequireNickname: true,
		ServerAddr:      ":8080",
		LogLevel:        "info",
	}
}

// Load reads .env from the working directory when present, then overlays
// PHARMCHECK_* variables on the defaults and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FromEnv overlays variables from lookup on the defaults without validating.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("DB", &cfg.DBPath)
	str("BANK", &cfg.BankPath)
	str("ASSETS_DIR", &cfg.AssetsDir)
	str("SUBMIT_ENDPOINT", &cfg.SubmitEndpoint)
	str("NORMALIZATION", &cfg.Normalization)
	str("SERVER_ADDR", &cfg.ServerAddr)
	str("LOG_PATH", &cfg.LogPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if v, ok := lookup(EnvPrefix + "SUBMIT_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSUBMIT_TIMEOUT: %w", EnvPrefix, err))
		} else {
			cfg.SubmitTimeout = d
		}
	}
	if v, ok := lookup(EnvPrefix + "TOP_N"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTOP_N: %w", EnvPrefix, err))
		} else {
			cfg.TopN = n
		}
	}
	if v, ok := lookup(EnvPrefix + "REQUIRE_NICKNAME"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUIRE_NICKNAME: %w", EnvPrefix, err))
		} else {
			cfg.RequireNickname = b
		}
	}

	return cfg, errors.Join(errs...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return EnvPrefix + name
		}
		return f.Name
	})
	return v
}

// Validate checks field constraints and reports every violation.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%q fails %q", fe.Field(), fmt.Sprint(fe.Value()), describe(fe)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// Scoring returns the scoring configuration. Call after Validate.
func (c Config) Scoring() scoring.Config {
	p, err := scoring.ParsePolicy(c.Normalization)
	if err != nil {
		return scoring.DefaultConfig()
	}
	return scoring.Config{Policy: p}
}

// Submit returns the submission client configuration.
func (c Config) Submit() submit.Config {
	return submit.Config{Endpoint: c.SubmitEndpoint, Timeout: c.SubmitTimeout}
}
