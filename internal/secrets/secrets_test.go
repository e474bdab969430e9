package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCaseInsensitive(t *testing.T) {
	store := Static{"api_key": "from-config"}

	v, err := store.Get(context.Background(), "API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-config", v)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("ORACLEKEEPER_SECRET_API_KEY", "from-env")

	v, err := Env{Prefix: "ORACLEKEEPER_SECRET_"}.Get(context.Background(), "API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestChainOrderAndMiss(t *testing.T) {
	t.Setenv("TEST_SECRET_API_KEY", "env")
	chain := Chain{Static{"API_KEY": "config"}, Env{Prefix: "TEST_SECRET_"}}

	v, err := chain.Get(context.Background(), "API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "config", v)

	_, err = chain.Get(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
	assert.Equal(t, "secret not found: MISSING", err.Error())
}
