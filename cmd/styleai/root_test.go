package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tarakkrishna/StyleSense/internal/config"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "styleai" {
			t.Errorf("expected use 'styleai', got %q", cmd.Use)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"serve", "version"} {
			found, _, err := cmd.Find([]string{name})
			if err != nil || found.Name() != name {
				t.Errorf("expected subcommand %q, got %v (%v)", name, found, err)
			}
		}
	})

	t.Run("silences usage on error", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors")
		}
	})
}

func TestServeFlags(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	for _, name := range []string{"addr", "api-base", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s", name)
		}
	}
}

func TestServeMissingConfigFile(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		t.Fatalf("expected ErrConfigFileNotFound, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "styleai version ") {
		t.Errorf("unexpected output %q", out.String())
	}
	if !strings.Contains(out.String(), "commit:") {
		t.Errorf("expected commit line in %q", out.String())
	}
}
