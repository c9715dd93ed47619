package config

import (
	"context"
	"fmt"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by NewEnvVarSource.
// Nested keys are separated by a double underscore:
// JOBHEALTH_DATABASE__DSN sets database.dsn.
const EnvPrefix = "JOBHEALTH_"

type Source struct {
	Provider func(k *koanf.Koanf) koanf.Provider
	Parser   koanf.Parser
}

func NewJsonFileSource(path string) *Source {
	return &Source{
		Provider: func(_ *koanf.Koanf) koanf.Provider {
			return file.Provider(path)
		},
		Parser: kjson.Parser(),
	}
}

func NewEnvVarSource() *Source {
	return &Source{
		Provider: func(_ *koanf.Koanf) koanf.Provider {
			return env.Provider(EnvPrefix, ".", func(s string) string {
				s = strings.TrimPrefix(s, EnvPrefix)
				s = strings.ToLower(s)
				return strings.ReplaceAll(s, "__", ".")
			})
		},
	}
}

// NewPFlagSource reads flags named after their dotted keys, e.g.
// --database.dsn. Flags without a dot are ignored. Unchanged flags never
// override earlier sources.
func NewPFlagSource(flagSet *pflag.FlagSet) *Source {
	return &Source{
		Provider: func(k *koanf.Koanf) koanf.Provider {
			return posflag.ProviderWithFlag(flagSet, ".", k, func(f *pflag.Flag) (string, interface{}) {
				if !strings.Contains(f.Name, ".") {
					return "", nil
				}
				return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flagSet, f)
			})
		},
	}
}

// Load merges the defaults with sources, in order, then resolves secret
// references and validates the result.
func Load(ctx context.Context, resolver *SecretResolver, sources ...*Source) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, src := range sources {
		if err := k.Load(src.Provider(k), src.Parser); err != nil {
			return Config{}, fmt.Errorf("failed to load config source: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	dsn, err := resolver.ResolveValue(ctx, cfg.Database.DSN)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve database.dsn: %w", err)
	}
	cfg.Database.DSN = dsn

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
