package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const secretRefPrefix = "secretref:"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing environment variable")

	// ErrUnknownSecretProvider indicates a secretref with no registered provider.
	ErrUnknownSecretProvider = errors.New("config: unknown secret provider")

	// ErrEmptySecret indicates a provider resolved a reference to "".
	ErrEmptySecret = errors.New("config: secret resolved to empty value")
)

// SecretProvider resolves the ref part of secretref:<name>:<ref>.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvSecretProvider resolves secretref:env:NAME from the process environment.
type EnvSecretProvider struct{}

func (EnvSecretProvider) Name() string { return "env" }

func (EnvSecretProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// FileSecretProvider resolves secretref:file:/path to the file contents with
// surrounding whitespace trimmed.
type FileSecretProvider struct{}

func (FileSecretProvider) Name() string { return "file" }

func (FileSecretProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SecretResolver expands ${VAR} references and then resolves a value of the
// form secretref:<provider>:<ref>. Values without the prefix are returned
// after expansion.
type SecretResolver struct {
	providers map[string]SecretProvider
}

// NewSecretResolver registers providers by name. With no providers the env
// and file providers are used.
func NewSecretResolver(providers ...SecretProvider) *SecretResolver {
	if len(providers) == 0 {
		providers = []SecretProvider{EnvSecretProvider{}, FileSecretProvider{}}
	}
	r := &SecretResolver{providers: make(map[string]SecretProvider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ResolveValue returns value with env references expanded and any secret
// reference resolved. A nil resolver only expands env references.
func (r *SecretResolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := expandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	name, ref, ok := parseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}
	p, found := r.providers[name]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrUnknownSecretProvider, name)
	}
	resolved, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return resolved, nil
}

func parseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, secretRefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var envRefPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict replaces ${VAR} with its value and $$ with a literal $.
// A bare $ is left alone, since passwords in DSNs often contain one.
func expandEnvStrict(s string) (string, error) {
	var missing []string
	out := envRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		if m == "$$" {
			return "$"
		}
		key := m[2 : len(m)-1]
		v, ok := os.LookupEnv(key)
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
