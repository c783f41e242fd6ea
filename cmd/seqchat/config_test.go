package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/seqchat/internal/inference"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ModelDir != "" || cfg.MaxLength != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "model_dir: /models/chatbot\nmax_length: 25\nshow_tokens: true\nlog_level: debug\nno_color: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ModelDir != "/models/chatbot" {
		t.Fatalf("model_dir = %q", cfg.ModelDir)
	}
	if cfg.MaxLength == nil || *cfg.MaxLength != 25 {
		t.Fatalf("max_length = %v", cfg.MaxLength)
	}
	if cfg.ShowTokens == nil || !*cfg.ShowTokens {
		t.Fatalf("show_tokens = %v", cfg.ShowTokens)
	}
	if cfg.NoColor == nil || !*cfg.NoColor {
		t.Fatalf("no_color = %v", cfg.NoColor)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_length: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(envConfigFile, "/etc/seqchat.yaml")
	if got := configPath(); got != "/etc/seqchat.yaml" {
		t.Fatalf("configPath() = %q", got)
	}
}

func TestCheckDecodeFlagsBoundsMaxLength(t *testing.T) {
	saved := maxLength
	t.Cleanup(func() { maxLength = saved })

	for _, tc := range []struct {
		n       int
		wantErr bool
	}{
		{n: inference.MaxLength},
		{n: inference.MaxLengthLimit},
		{n: 0, wantErr: true},
		{n: inference.MaxLengthLimit + 1, wantErr: true},
	} {
		maxLength = tc.n
		err := checkDecodeFlags()
		if tc.wantErr && !errors.Is(err, inference.ErrMaxLength) {
			t.Fatalf("max length %d: err = %v, want ErrMaxLength", tc.n, err)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("max length %d: unexpected error %v", tc.n, err)
		}
	}
}
