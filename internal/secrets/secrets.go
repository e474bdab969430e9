package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when no store holds the requested secret.
var ErrSecretNotFound = errors.New("secret not found")

// Store resolves named credentials at call time.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// Static serves secrets from configuration.
type Static map[string]string

// Get implements Store. Keys are matched case-insensitively since viper lowercases map keys.
func (s Static) Get(ctx context.Context, name string) (string, error) {
	if v, ok := s[name]; ok && v != "" {
		return v, nil
	}
	for k, v := range s {
		if strings.EqualFold(k, name) && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Env serves secrets from the process environment as Prefix+name.
type Env struct {
	Prefix string
}

// Get implements Store.
func (e Env) Get(ctx context.Context, name string) (string, error) {
	if v, ok := os.LookupEnv(e.Prefix + name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Chain consults each store in order and returns the first hit.
type Chain []Store

// Get implements Store.
func (c Chain) Get(ctx context.Context, name string) (string, error) {
	for _, store := range c {
		v, err := store.Get(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

var (
	_ Store = Static(nil)
	_ Store = Env{}
	_ Store = Chain(nil)
)
