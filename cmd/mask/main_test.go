package main

import (
	"path/filepath"
	"testing"

	"github.com/Peppe37/mask/internal/app"
)

func TestBuildConfig_FlagsWinOverFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := app.SaveConfig(app.Config{ServerURL: "http://from-file/api"}, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("MASK_SERVER_URL", "http://from-env/api")

	flagConfig = path
	flagServer = "http://from-flag/api"
	flagMock = true
	defer func() { flagConfig, flagServer, flagMock = "", "", false }()

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ServerURL != "http://from-flag/api" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if !cfg.Mock {
		t.Fatal("mock flag not applied")
	}
}

func TestBuildConfig_DefaultsWithoutFlags(t *testing.T) {
	t.Setenv("MASK_SERVER_URL", "")
	flagConfig = filepath.Join(t.TempDir(), "absent.yml")
	flagServer = ""
	flagMock = false
	defer func() { flagConfig = "" }()

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ServerURL != app.DefaultServerURL {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.Mock {
		t.Fatal("mock defaulted on")
	}
}
