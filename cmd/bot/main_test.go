package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niftyshop/nifty-shop-bot/pkg/config"
)

func TestDispatchMode(t *testing.T) {
	tests := []struct {
		name        string
		reconfigure bool
		configOnly  bool
		exists      bool
		recovered   bool
		want        runMode
	}{
		{"normal run with existing config", false, false, true, false, modeRun},
		{"normal run with recovered config stays non-fatal", false, false, true, true, modeRun},
		{"first run triggers wizard", false, false, false, false, modeWizardRun},
		{"reconfigure forces wizard", true, false, true, false, modeWizardRun},
		{"reconfigure on fresh install", true, false, false, false, modeWizardRun},
		{"config-only with valid config just validates", false, true, true, false, modeValidateExit},
		{"config-only with recovered config runs wizard", false, true, true, true, modeWizardExit},
		{"config-only on fresh install configures then exits", false, true, false, false, modeWizardExit},
		{"reconfigure plus config-only configures then exits", true, true, true, false, modeWizardExit},
		{"reconfigure plus config-only on fresh install", true, true, false, false, modeWizardExit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dispatchMode(tt.reconfigure, tt.configOnly, tt.exists, tt.recovered))
		})
	}
}

func TestDispatchMode_CorruptDocumentWithConfigOnly(t *testing.T) {
	// A persisted document that only loads by falling back to defaults must
	// not take the validate-and-exit shortcut.
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"daily_trade_limit": "lots"`), 0644))

	store := config.NewStore(path)
	result := store.Load()
	require.Equal(t, config.LoadedRecovered, result.Status)

	mode := dispatchMode(false, true, store.Exists(), result.Status == config.LoadedRecovered)
	assert.Equal(t, modeWizardExit, mode)
}
