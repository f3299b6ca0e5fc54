package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/fpna/internal/config"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	conf := config.Default()
	conf.Seed.ActualsYear = 2024
	conf.Seed.BudgetYear = 2025
	require.NoError(t, conf.Normalize())
	return conf
}

func TestNewSeedsMemoryStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	keys, err := a.Service.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025:Base"}, keys)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWithoutSeed(t *testing.T) {
	conf := testConfig(t)
	conf.Seed.Enabled = false

	a, err := New(context.Background(), conf, nil, "test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	keys, err := a.Service.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfiguredRatesOverrideSeed(t *testing.T) {
	conf := testConfig(t)
	conf.FX.Rates = []fx.Rate{{Base: "EUR", Quote: "USD", Month: "2024-03", Rate: 1.25}}

	a, err := New(context.Background(), conf, zap.NewNop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	rates, err := a.Service.Rates(context.Background())
	require.NoError(t, err)
	var found bool
	for _, r := range rates {
		if r.Base == "EUR" && r.Month == "2024-03" {
			found = true
			assert.InDelta(t, 1.25, r.Rate, 1e-9)
		}
	}
	assert.True(t, found)
}

func TestNewWithBoltStore(t *testing.T) {
	conf := testConfig(t)
	conf.Store.Driver = constants.StoreDriverBolt
	conf.Store.Path = filepath.Join(t.TempDir(), "data", "fpna.bolt")

	a, err := New(context.Background(), conf, zap.NewNop(), "test")
	require.NoError(t, err)
	keys, err := a.Service.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Contains(t, keys, "2025:Base")
	require.NoError(t, a.Close())

	// A second start finds the seeded data and leaves it alone.
	again, err := New(context.Background(), conf, zap.NewNop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, again.Close()) })
	keys, err = again.Service.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025:Base"}, keys)
}

func TestNewLoadsPresetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qsr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("royalty_pct: -0.5\n"), 0o600))

	conf := testConfig(t)
	conf.Preset.File = path
	_, err := New(context.Background(), conf, zap.NewNop(), "test")
	assert.Error(t, err)

	conf.Preset.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(context.Background(), conf, zap.NewNop(), "test")
	assert.Error(t, err)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
