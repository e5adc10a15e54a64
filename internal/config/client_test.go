package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func newClientFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("postly", pflag.ContinueOnError)
	ClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return fs
}

func TestLoadClientPrecedence(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadClient(newClientFlags(t), "/tmp/token.json")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.APIURL != "http://localhost:8001" || cfg.TokenFile != "/tmp/token.json" || cfg.Verbose {
		t.Errorf("defaults = %+v", cfg)
	}

	t.Setenv("POSTLY_API_URL", "https://api.example.com/")
	t.Setenv("POSTLY_TOKEN_FILE", "/env/token.json")
	cfg, err = LoadClient(newClientFlags(t), "/tmp/token.json")
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" || cfg.TokenFile != "/env/token.json" {
		t.Errorf("env = %+v", cfg)
	}

	cfg, err = LoadClient(newClientFlags(t, "--api-url", "http://flag:9000", "-v"), "/tmp/token.json")
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	if cfg.APIURL != "http://flag:9000" || !cfg.Verbose || cfg.TokenFile != "/env/token.json" {
		t.Errorf("flags = %+v", cfg)
	}
}

func TestLoadClientRejectsBadURL(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadClient(newClientFlags(t, "--api-url", "localhost:8001"), "/tmp/t"); err == nil {
		t.Fatal("scheme-less url accepted")
	}
}
