package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framecap.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHostDefaults(t *testing.T) {
	cfg, err := LoadHost(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SignalingURL != "ws://localhost:8080" || cfg.Backend != BackendOffscreen {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FPS != 30 || cfg.Width != 800 || cfg.Height != 600 || cfg.MaxRPS != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.HostID, "host-") || len(cfg.HostID) != len("host-")+8 {
		t.Fatalf("generated id = %q", cfg.HostID)
	}
}

func TestHostPrecedence(t *testing.T) {
	path := writeConfig(t, "fps: 10\nwidth: 320\nheight: 200\nbackend: desktop\n")

	tests := []struct {
		name      string
		env       map[string]string
		args      []string
		wantFPS   int
		wantWidth int
	}{
		{
			name:      "file over defaults",
			args:      []string{"--config", path},
			wantFPS:   10,
			wantWidth: 320,
		},
		{
			name:      "env over file",
			env:       map[string]string{"FRAMECAP_FPS": "20"},
			args:      []string{"--config", path},
			wantFPS:   20,
			wantWidth: 320,
		},
		{
			name:      "flag over env",
			env:       map[string]string{"FRAMECAP_FPS": "20"},
			args:      []string{"--config", path, "--fps", "60", "--width", "640"},
			wantFPS:   60,
			wantWidth: 640,
		},
		{
			name:      "config path from env",
			env:       map[string]string{"FRAMECAP_CONFIG": path},
			wantFPS:   10,
			wantWidth: 320,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadHost(tt.args)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.FPS != tt.wantFPS || cfg.Width != tt.wantWidth {
				t.Fatalf("fps=%d width=%d, want fps=%d width=%d", cfg.FPS, cfg.Width, tt.wantFPS, tt.wantWidth)
			}
			if cfg.Backend != BackendDesktop || cfg.Height != 200 {
				t.Fatalf("file values lost: %+v", cfg)
			}
		})
	}
}

func TestHostEnvDashKeys(t *testing.T) {
	t.Setenv("FRAMECAP_MAX_RPS", "2.5")
	t.Setenv("FRAMECAP_LOG_SCOPE", "capture=debug,remote=warn")

	cfg, err := LoadHost(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxRPS != 2.5 {
		t.Fatalf("max-rps = %v", cfg.MaxRPS)
	}
	if len(cfg.LogScopes) != 2 || cfg.LogScopes[0] != "capture=debug" {
		t.Fatalf("log scopes = %q", cfg.LogScopes)
	}
}

func TestHostValidation(t *testing.T) {
	for _, args := range [][]string{
		{"--backend", "gpu"},
		{"--fps", "0"},
		{"--fps", "241"},
		{"--width", "0"},
		{"--max-rps", "-1"},
		{"--no-such-flag"},
	} {
		if _, err := LoadHost(args); err == nil {
			t.Errorf("LoadHost(%q) succeeded", args)
		}
	}
}

func TestHelp(t *testing.T) {
	if _, err := LoadSignal([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("err = %v, want pflag.ErrHelp", err)
	}
}

func TestViewer(t *testing.T) {
	if _, err := LoadViewer(nil); err == nil {
		t.Fatal("missing --host accepted")
	}
	if _, err := LoadViewer([]string{"--host", "h", "--format", "cmyk"}); err == nil {
		t.Fatal("unknown format accepted")
	}

	path := writeConfig(t, "region:\n  x: 5\n  width: 40\n")
	t.Setenv("FRAMECAP_REGION_Y", "7")
	cfg, err := LoadViewer([]string{"--host", "host-1", "--config", path, "--interval", "2s", "--region.height", "30"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HostID != "host-1" || cfg.Interval != 2*time.Second || cfg.Format != "rgb24" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	want := Region{X: 5, Y: 7, Width: 40, Height: 30}
	if cfg.Region != want {
		t.Fatalf("region = %+v, want %+v", cfg.Region, want)
	}
	if !strings.HasPrefix(cfg.ViewerID, "viewer-") {
		t.Fatalf("generated id = %q", cfg.ViewerID)
	}
}

func TestSignal(t *testing.T) {
	cfg, err := LoadSignal([]string{"--listen", ":9090", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
