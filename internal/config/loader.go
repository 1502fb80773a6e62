package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultPath is read when no config file is named and it exists.
	DefaultPath = "foldertalk.toml"

	// DotEnvFile is loaded into the process environment when present.
	DotEnvFile = ".env"

	// EnvPrefix marks environment overrides: FOLDERTALK_LLM_MODEL -> llm.model.
	EnvPrefix = "FOLDERTALK_"

	maxConfigFileSize = 1024 * 1024
)

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. FOLDERTALK_* environment variables, including those from .env
//  2. The TOML file at path, or ./foldertalk.toml when path is empty
//  3. Built-in defaults
//
// A named file must exist; the default file is optional.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	parser := TOMLParser()

	defaults, err := DefaultTOML()
	if err != nil {
		return nil, err
	}
	if err := k.Load(rawbytes.Provider(defaults), parser); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), parser); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue(k)), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyProviderKeys(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// DefaultTOML renders the built-in defaults as a TOML document.
func DefaultTOML() ([]byte, error) {
	cfg := Default()
	return Marshal(&cfg)
}

// Marshal renders a configuration as TOML. Durations are written as strings.
func Marshal(cfg *Config) ([]byte, error) {
	b, err := TOMLParser().Marshal(toMap(reflect.ValueOf(cfg).Elem()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return b, nil
}

// envKey maps FOLDERTALK_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// envValue maps variables onto keys and splits comma-separated values for
// keys whose loaded value is a list.
func envValue(k *koanf.Koanf) func(key, value string) (string, interface{}) {
	return func(key, value string) (string, interface{}) {
		key = envKey(key)
		if _, ok := k.Get(key).([]interface{}); !ok {
			return key, value
		}
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
}

// loadDotEnv adds variables from a dotenv file without overriding ones
// already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// readConfigFile returns nil content when the default file is absent.
func readConfigFile(path string) ([]byte, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes (max %d)", path, info.Size(), maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyProviderKeys falls back to the providers' conventional variables.
func applyProviderKeys(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = providerKey(cfg.Embedding.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
}

func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// toMap flattens a config struct into nested maps keyed by koanf tags.
func toMap(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		field := v.Field(i)
		switch {
		case field.Type() == reflect.TypeOf(time.Duration(0)):
			out[key] = time.Duration(field.Int()).String()
		case field.Kind() == reflect.Struct:
			out[key] = toMap(field)
		default:
			out[key] = field.Interface()
		}
	}
	return out
}
