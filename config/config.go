// Package config holds the module configuration.  All fields have safe
// defaults so callers can start from Default() and override only what they
// need.
package config

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Backend identifiers accepted by the selector.
const (
	BackendRaster = "raster"
	BackendVips   = "vips"
)

// Environment variables consumed by FromEnv.
const (
	EnvBackend = "IMAGECHAIN_BACKEND"
	EnvQuality = "IMAGECHAIN_QUALITY"
)

// Config is the top-level configuration struct.
type Config struct {
	// Backend selects the active engine: "raster" or "vips",
	// case-insensitive.
	Backend string

	// DefaultQuality applies when no processor set an explicit encode
	// quality.  1-100; default 85.
	DefaultQuality int

	// MaxEncodeBlock is the staging block size in bytes for raster-engine
	// saves.  A failed encode is retried once with a 16x allowance.
	// Default 64 KiB.
	MaxEncodeBlock int

	// MaxImageBytes caps how much may be read from a source reader.
	// 0 = no limit.
	MaxImageBytes int64

	// libvips tuning, used only by the vips backend.
	VipsCacheMB int
	VipsWorkers int // default: runtime.NumCPU()
	ReportLeaks bool

	// LogLevel: "debug", "info", "warn", "error".
	LogLevel string
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Backend:        BackendRaster,
		DefaultQuality: 85,
		MaxEncodeBlock: 64 * 1024,
		VipsCacheMB:    128,
		VipsWorkers:    runtime.NumCPU(),
		LogLevel:       "info",
	}
}

// FromEnv returns Default() overridden by any recognized environment
// variables.
func FromEnv() Config {
	cfg := Default()
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvQuality); v != "" {
		if q, err := strconv.Atoi(v); err == nil {
			cfg.DefaultQuality = q
		}
	}
	return cfg
}

// Validate returns an error if the configuration is inconsistent.
// Backend names are not validated here; the selector reports unknown
// backends itself so the error carries the configured value.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.MaxEncodeBlock <= 0 {
		return errors.New("config: MaxEncodeBlock must be positive")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("config: MaxImageBytes must not be negative")
	}
	return nil
}
