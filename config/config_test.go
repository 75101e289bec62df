package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embercash/payflow/tests"
)

func TestConfig_SetIgnoreKeepsFirstValue(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	require.NoError(t, svc.Config.SetIgnore("Greeting", "hello"))
	require.NoError(t, svc.Config.SetIgnore("Greeting", "goodbye"))

	value, err := svc.Config.Get("Greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
}

func TestConfig_SetUpdateOverwrites(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	require.NoError(t, svc.Config.SetUpdate("Greeting", "hello"))
	require.NoError(t, svc.Config.SetUpdate("Greeting", "goodbye"))

	value, err := svc.Config.Get("Greeting")
	require.NoError(t, err)
	assert.Equal(t, "goodbye", value)
}

func TestConfig_JWTSecretIsStable(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	first, err := svc.Config.GetJWTSecret()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := svc.Config.GetJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConfig_GetNetwork(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	assert.Equal(t, "mainnet", svc.Config.GetNetwork())
}
