package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	require.NoError(t, WriteConfigFiles(cfg))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, home, loaded.App.Home)
	require.Equal(t, cfg.App.FundingThreshold, loaded.App.FundingThreshold)
	require.Equal(t, time.Second*6, loaded.App.Indexer.PollInterval)
	require.Equal(t, filepath.Join(home, "indexer.db"), loaded.App.IndexerDBPath())

	sc, err := loaded.App.Surety()
	require.NoError(t, err)
	require.Equal(t, int64(3), sc.PayoutNumerator)
	require.Equal(t, uint64(4), sc.BootstrapAirlines)
}

func TestAppConfigOverrides(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	require.NoError(t, WriteConfigFiles(cfg))

	file := filepath.Join(home, "config", AppConfigFile)
	dat, err := os.ReadFile(file)
	require.NoError(t, err)
	dat = []byte(strings.Replace(string(dat), `max_premium = "1000000000000000000"`, `max_premium = "500"`, 1))
	require.NoError(t, os.WriteFile(file, dat, 0o644))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	sc, err := loaded.App.Surety()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), sc.MaxPremium)
}

func TestInvalidAmountRejected(t *testing.T) {
	c := DefaultSuretyAppConfig(t.TempDir())
	c.FundingThreshold = "ten"
	_, err := c.Surety()
	require.Error(t, err)

	c = DefaultSuretyAppConfig(t.TempDir())
	c.PayoutDenominator = -1
	_, err = c.Surety()
	require.Error(t, err)
}

func TestInitializeOwner(t *testing.T) {
	home := t.TempDir()
	owner, err := InitializeOwner(home)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(owner, "0x"))
	_, err = InitializeOwner(home)
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, WriteConfigFiles(DefaultConfig(home)))
	t.Setenv("SURETY_APP_MAX_PREMIUM", "700")
	t.Setenv("SURETY_APP_INDEXER_ENABLE", "false")

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "700", loaded.App.MaxPremium)
	require.False(t, loaded.App.Indexer.Enable)
}
