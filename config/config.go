package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hugogrimmett/meeting-analyser/identity"
)

// EnvPrefix prefixes environment overrides, e.g. MEETING_ANALYSER_SOURCE or
// MEETING_ANALYSER_SERVICES_VISUALIZATION_URL.
const EnvPrefix = "MEETING_ANALYSER"

const (
	SourceGoogle = "google"
	SourceLocal  = "local"

	StoreFile    = "file"
	StoreKeyring = "keyring"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	Calendar      Service `yaml:"calendar"`
	Drive         Service `yaml:"drive"`
	Slides        Service `yaml:"slides"`
	Visualization Service `yaml:"visualization"`
}
type Auth struct {
	Credentials string `yaml:"credentials"`
	Token       string `yaml:"token"`
	Store       string `yaml:"store"`
}
type Notes struct {
	Keyword string `yaml:"keyword"`
	Dir     string `yaml:"dir"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	Source   string `yaml:"source"`
	Calendar struct {
		ID string `yaml:"id"`
	} `yaml:"calendar"`
	Notes    Notes `yaml:"notes"`
	Identity struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"identity"`
	Auth         Auth     `yaml:"auth"`
	Services     Services `yaml:"services"`
	Presentation struct {
		Title string `yaml:"title"`
	} `yaml:"presentation"`
	Paths struct {
		ICS     string `yaml:"ics"`
		Outputs string `yaml:"outputs"`
	} `yaml:"paths"`

	// File is the config file that was read, empty when only defaults and
	// the environment were used.
	File string `yaml:"-"`
}

var defaults = map[string]any{
	"pipeline.name":              "meeting-analyser",
	"pipeline.version":           "dev",
	"pipeline.log_level":         "info",
	"pipeline.log_format":        "text",
	"source":                     SourceGoogle,
	"calendar.id":                "primary",
	"notes.keyword":              "gemini",
	"notes.dir":                  "notes",
	"identity.threshold":         identity.DefaultThreshold,
	"auth.credentials":           "credentials.json",
	"auth.token":                 "token.json",
	"auth.store":                 StoreFile,
	"services.calendar.url":      "",
	"services.drive.url":         "",
	"services.slides.url":        "",
	"services.visualization.url": "",
	"presentation.title":         "Automated Meeting Analysis Summary",
	"paths.ics":                  "calendar.ics",
	"paths.outputs":              "outputs",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"source":    "source",
	"log-level": "pipeline.log_level",
}

// Load reads the configuration. path names the file; when empty the first
// of config/<CONFIG_ENV>/config.yaml and config.yaml that exists is used,
// and with neither the defaults apply. Environment variables override the
// file, and flags that were set override both.
func Load(path string, flags *pflag.FlagSet) (*Root, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Root) Validate() error {
	var errs []error
	switch c.Source {
	case SourceGoogle, SourceLocal:
	default:
		errs = append(errs, fmt.Errorf("source %q: want %s or %s", c.Source, SourceGoogle, SourceLocal))
	}
	switch c.Auth.Store {
	case StoreFile, StoreKeyring:
	default:
		errs = append(errs, fmt.Errorf("auth.store %q: want %s or %s", c.Auth.Store, StoreFile, StoreKeyring))
	}
	if c.Identity.Threshold <= 0 || c.Identity.Threshold > 1 {
		errs = append(errs, fmt.Errorf("identity.threshold %v: want a value in (0, 1]", c.Identity.Threshold))
	}
	if c.Paths.Outputs == "" {
		errs = append(errs, errors.New("paths.outputs is empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
