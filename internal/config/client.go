package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ClientConfig configures the postly command line client.
type ClientConfig struct {
	APIURL    string
	TokenFile string
	Verbose   bool
}

// ClientFlags registers the flags LoadClient understands.
func ClientFlags(fs *pflag.FlagSet) {
	fs.String("api-url", "", "Postly API origin (env POSTLY_API_URL)")
	fs.String("token-file", "", "where the session token is kept (env POSTLY_TOKEN_FILE)")
	fs.BoolP("verbose", "v", false, "log every API request")
}

// LoadClient merges flags, POSTLY_* environment variables and .env. Flags
// that were set win over the environment.
func LoadClient(fs *pflag.FlagSet, defaultTokenFile string) (ClientConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POSTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.url", "http://localhost:8001")
	v.SetDefault("token.file", defaultTokenFile)
	v.SetDefault("verbose", false)

	for key, flag := range map[string]string{
		"api.url":    "api-url",
		"token.file": "token-file",
		"verbose":    "verbose",
	} {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return ClientConfig{}, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfg := ClientConfig{
		APIURL:    strings.TrimRight(strings.TrimSpace(v.GetString("api.url")), "/"),
		TokenFile: v.GetString("token.file"),
		Verbose:   v.GetBool("verbose"),
	}
	if cfg.APIURL == "" {
		return ClientConfig{}, fmt.Errorf("api url is required")
	}
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return ClientConfig{}, fmt.Errorf("api url %q must start with http:// or https://", cfg.APIURL)
	}
	if cfg.TokenFile == "" {
		return ClientConfig{}, fmt.Errorf("token file is required")
	}
	return cfg, nil
}
