package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/Amendor47/Studying-coach/internal/chunk"
	"github.com/Amendor47/Studying-coach/internal/draft"
	"github.com/Amendor47/Studying-coach/internal/extract"
)

// Config holds all runtime settings. Sources are merged in order of
// defaults, config file, STUDYCOACH_ environment variables, then flags.
type Config struct {
	DB    string `koanf:"db" validate:"required"`
	Repos string `koanf:"repos" validate:"required"`

	Log struct {
		Level string `koanf:"level" validate:"oneof=debug info warn error"`
	} `koanf:"log"`

	Chunk struct {
		MinWords int `koanf:"min_words" validate:"gt=0"`
		MaxWords int `koanf:"max_words" validate:"gt=0,gtefield=MinWords"`
	} `koanf:"chunk"`

	Extract struct {
		MaxTerms     int `koanf:"max_terms" validate:"gt=0"`
		MaxSentences int `koanf:"max_sentences" validate:"gt=0"`
	} `koanf:"extract"`
}

// Default returns the built-in settings used when nothing overrides them.
func Default() Config {
	var cfg Config
	cfg.DB = "studycoach.db"
	cfg.Repos = "repos"
	cfg.Log.Level = "info"
	seg := chunk.DefaultConfig()
	cfg.Chunk.MinWords = seg.MinWords
	cfg.Chunk.MaxWords = seg.MaxWords
	ext := extract.DefaultConfig()
	cfg.Extract.MaxTerms = ext.MaxTerms
	cfg.Extract.MaxSentences = ext.MaxSentences
	return cfg
}

// Load merges the config file at path (skipped when absent), environment
// variables and the given flag set over the defaults. Environment keys
// use a double underscore for nesting: STUDYCOACH_CHUNK__MAX_WORDS maps
// to chunk.max_words.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: "STUDYCOACH_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "STUDYCOACH_"))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DraftConfig maps the settings onto the draft generation pipeline.
func (c Config) DraftConfig() draft.Config {
	gen := draft.DefaultConfig()
	gen.Chunk.MinWords = c.Chunk.MinWords
	gen.Chunk.MaxWords = c.Chunk.MaxWords
	gen.Extract.MaxTerms = c.Extract.MaxTerms
	gen.Extract.MaxSentences = c.Extract.MaxSentences
	return gen
}
