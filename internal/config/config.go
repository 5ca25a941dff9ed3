// Package config loads the configuration of the framecap binaries from
// flags, FRAMECAP_ environment variables and an optional config file, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/junsooki/framecap/internal/capture"
)

// EnvPrefix prefixes every environment variable, e.g. FRAMECAP_MAX_RPS.
const EnvPrefix = "FRAMECAP"

// Host backends.
const (
	BackendOffscreen = "offscreen"
	BackendDesktop   = "desktop"
	BackendWindow    = "window"
)

// Host holds configuration for the host binary.
type Host struct {
	SignalingURL string   `mapstructure:"signaling"`
	HostID       string   `mapstructure:"id"`
	Backend      string   `mapstructure:"backend"`
	DisplayIndex int      `mapstructure:"display"`
	FPS          int      `mapstructure:"fps"`
	Width        int      `mapstructure:"width"`
	Height       int      `mapstructure:"height"`
	MaxRPS       float64  `mapstructure:"max-rps"`
	ChunkSize    int      `mapstructure:"chunk-size"`
	LogLevel     string   `mapstructure:"log-level"`
	LogScopes    []string `mapstructure:"log-scope"`
}

// Viewer holds configuration for the viewer binary.
type Viewer struct {
	SignalingURL string        `mapstructure:"signaling"`
	ViewerID     string        `mapstructure:"id"`
	HostID       string        `mapstructure:"host"`
	Format       string        `mapstructure:"format"`
	Interval     time.Duration `mapstructure:"interval"`
	Region       Region        `mapstructure:"region"`
	LogLevel     string        `mapstructure:"log-level"`
	LogScopes    []string      `mapstructure:"log-scope"`
}

// Region is the rectangle the viewer requests on R, in host world units.
type Region struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// Signal holds configuration for the signaling server.
type Signal struct {
	Listen    string   `mapstructure:"listen"`
	LogLevel  string   `mapstructure:"log-level"`
	LogScopes []string `mapstructure:"log-scope"`
}

// LoadHost parses args for the host binary.
func LoadHost(args []string) (*Host, error) {
	fs := pflag.NewFlagSet("framecap-host", pflag.ContinueOnError)
	fs.String("signaling", "ws://localhost:8080", "Signaling server WebSocket URL")
	fs.String("id", "", "Host ID (auto-generated if empty)")
	fs.String("backend", BackendOffscreen, "Frame source: offscreen, desktop or window")
	fs.Int("display", 0, "Display index to capture with the desktop backend (0 = primary)")
	fs.Int("fps", 30, "Target frames per second")
	fs.Int("width", 800, "Surface width of the offscreen and window backends")
	fs.Int("height", 600, "Surface height of the offscreen and window backends")
	fs.Float64("max-rps", 5, "Maximum capture requests per second (0 = unlimited)")
	fs.Int("chunk-size", 0, "Capture chunk size in bytes (0 = default)")
	addLogFlags(fs)

	cfg := &Host{}
	if err := load(fs, args, cfg); err != nil {
		return nil, err
	}
	if cfg.HostID == "" {
		cfg.HostID = "host-" + shortID()
	}
	switch cfg.Backend {
	case BackendOffscreen, BackendDesktop, BackendWindow:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.FPS < 1 || cfg.FPS > 240 {
		return nil, fmt.Errorf("fps %d out of range [1, 240]", cfg.FPS)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.MaxRPS < 0 {
		return nil, fmt.Errorf("max-rps must not be negative")
	}
	return cfg, nil
}

// LoadViewer parses args for the viewer binary.
func LoadViewer(args []string) (*Viewer, error) {
	fs := pflag.NewFlagSet("framecap-viewer", pflag.ContinueOnError)
	fs.String("signaling", "ws://localhost:8080", "Signaling server WebSocket URL")
	fs.String("id", "", "Viewer ID (auto-generated if empty)")
	fs.String("host", "", "Host ID to connect to (required)")
	fs.String("format", capture.RGB24.String(), "Pixel format of requested captures")
	fs.Duration("interval", 0, "Request a full capture at this interval (0 = only on key press)")
	fs.Float64("region.x", 0, "Region capture left edge")
	fs.Float64("region.y", 0, "Region capture bottom edge")
	fs.Float64("region.width", 200, "Region capture width")
	fs.Float64("region.height", 150, "Region capture height")
	addLogFlags(fs)

	cfg := &Viewer{}
	if err := load(fs, args, cfg); err != nil {
		return nil, err
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = "viewer-" + shortID()
	}
	if cfg.HostID == "" {
		return nil, errors.New("--host is required")
	}
	if _, err := capture.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative")
	}
	return cfg, nil
}

// LoadSignal parses args for the signaling server.
func LoadSignal(args []string) (*Signal, error) {
	fs := pflag.NewFlagSet("framecap-signal", pflag.ContinueOnError)
	fs.String("listen", ":8080", "HTTP listen address")
	addLogFlags(fs)

	cfg := &Signal{}
	if err := load(fs, args, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level: disabled, error, warn, info, debug or trace")
	fs.StringSlice("log-scope", nil, "Per-scope log level override, e.g. capture=debug")
	fs.String("config", "", "Config file (yaml, json or toml)")
}

// load parses args into fs and decodes the merged settings into out.
func load(fs *pflag.FlagSet, args []string, out any) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
