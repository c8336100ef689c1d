package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHost(t *testing.T) {
	cfg := Default()
	cfg.SetHosts(transferService, map[Region]string{
		RegionGlobal:  transferGlobal + "/",
		RegionEUWest1: transferEUWest1,
	})

	host, err := cfg.GetHost(transferService, RegionEUWest1)
	require.NoError(t, err)
	assert.Equal(t, transferEUWest1, host)

	t.Run("empty_region_means_global", func(t *testing.T) {
		host, err := cfg.GetHost(transferService, "")
		require.NoError(t, err)
		assert.Equal(t, transferGlobal, host, "trailing slash is trimmed")
	})

	t.Run("unknown_region_lists_available", func(t *testing.T) {
		_, err := cfg.GetHost(transferService, RegionUSWest2)
		require.Error(t, err)
		assert.True(t, IsInvalidRegion(err))
		assert.Contains(t, err.Error(), "available regions are eu-west-1, global")
	})

	t.Run("unknown_service", func(t *testing.T) {
		_, err := cfg.GetHost("billing", RegionGlobal)
		require.Error(t, err)
		assert.True(t, IsInvalidRegion(err))
		assert.Contains(t, err.Error(), "add hosts.billing")
	})
}

func TestGetHostNilConfig(t *testing.T) {
	var cfg *Config
	_, err := cfg.GetHost(transferService, RegionGlobal)
	assert.True(t, IsInvalidRegion(err))
}

func TestSetHostsCopiesInput(t *testing.T) {
	cfg := &Config{}
	hosts := map[Region]string{RegionGlobal: transferGlobal}
	cfg.SetHosts(transferService, hosts)
	hosts[RegionGlobal] = "https://changed.example"

	host, err := cfg.GetHost(transferService, RegionGlobal)
	require.NoError(t, err)
	assert.Equal(t, transferGlobal, host)
	assert.Equal(t, []string{transferService}, cfg.Services())
}
