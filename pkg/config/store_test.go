package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.json"))

	result := store.Load()

	assert.Equal(t, LoadedDefaults, result.Status)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, DefaultDocument(), result.Document)

	// First-run defaults are never written until setup completes.
	assert.False(t, store.Exists())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.json"))

	doc := DefaultDocument()
	doc.DailyTradeLimit = 2
	doc.ProfitThreshold = 12.5
	doc.LossThreshold = -7.5

	require.NoError(t, store.Save(doc))
	require.True(t, store.Exists())

	result := store.Load()
	require.Equal(t, LoadedFromFile, result.Status)
	require.Empty(t, result.Warnings)

	assert.Equal(t, 2, result.Document.DailyTradeLimit)
	assert.Equal(t, 12.5, result.Document.ProfitThreshold)
	assert.Equal(t, -7.5, result.Document.LossThreshold)
	assert.Equal(t, Version, result.Document.ConfigVersion)
	assert.False(t, result.Document.LastUpdated.IsZero())
}

func TestLoad_MissingKeysFilledFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profit_threshold_for_selling": 8.0}`), 0644))

	result := NewStore(path).Load()

	// Missing keys are ordinary forward compatibility, not corruption.
	assert.Equal(t, LoadedFromFile, result.Status)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 8.0, result.Document.ProfitThreshold)
	assert.Equal(t, 1, result.Document.DailyTradeLimit)
	assert.Equal(t, -3.0, result.Document.LossThreshold)
}

func TestLoad_HardBoundViolationsResetPerField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"daily_trade_limit": -5,
		"profit_threshold_for_selling": 8.0,
		"loss_threshold_for_averaging": 3.0
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	result := NewStore(path).Load()

	assert.Equal(t, LoadedRecovered, result.Status)
	assert.Len(t, result.Warnings, 2)

	assert.Equal(t, 1, result.Document.DailyTradeLimit)
	assert.Equal(t, 8.0, result.Document.ProfitThreshold)
	assert.Equal(t, -3.0, result.Document.LossThreshold)
}

func TestLoad_NoLoadedDocumentEverViolatesHardBounds(t *testing.T) {
	bad := []string{
		`{"daily_trade_limit": 0}`,
		`{"profit_threshold_for_selling": -1.0}`,
		`{"loss_threshold_for_averaging": 0.0}`,
		`{"daily_trade_limit": -1, "profit_threshold_for_selling": 0, "loss_threshold_for_averaging": 50.0}`,
	}

	for _, raw := range bad {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

		doc := NewStore(path).Load().Document
		for _, spec := range Specs() {
			v, err := doc.Value(spec.Name)
			require.NoError(t, err)
			assert.Equal(t, Accepted, spec.Validate(v).Kind, "raw=%s field=%s", raw, spec.Name)
		}
	}
}

func TestLoad_MalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"daily_trade_limit": `), 0644))

	result := NewStore(path).Load()

	assert.Equal(t, LoadedRecovered, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "corrupt")
	assert.Equal(t, DefaultDocument(), result.Document)
}

func TestLoad_NonNumericFieldFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"daily_trade_limit": "lots"}`), 0644))

	result := NewStore(path).Load()

	assert.Equal(t, LoadedRecovered, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "daily_trade_limit")
	assert.Equal(t, 1, result.Document.DailyTradeLimit)
	assert.Equal(t, 5.0, result.Document.ProfitThreshold)
	assert.Equal(t, -3.0, result.Document.LossThreshold)
}

func TestLoad_FractionalTradeLimitResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"daily_trade_limit": 2.5}`), 0644))

	result := NewStore(path).Load()

	assert.Equal(t, LoadedRecovered, result.Status)
	assert.Equal(t, 1, result.Document.DailyTradeLimit)
}

func TestSave_UnwritableLocationReturnsErrReadOnly(t *testing.T) {
	// A regular file standing in for the parent directory makes the write
	// fail regardless of the uid the tests run under.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewStore(filepath.Join(blocker, "config.json"))
	doc := DefaultDocument()

	err := store.Save(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadOnly))

	// The in-memory document stays fully usable.
	assert.Equal(t, 1, doc.DailyTradeLimit)
	assert.Equal(t, Accepted, mustSpec(t, ParamProfitThreshold).Validate(doc.ProfitThreshold).Kind)
}

func TestSave_NeverLeavesPartialDocument(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, store.Save(DefaultDocument()))

	// No temporary file survives a successful save.
	_, err := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var parsed map[string]any
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, Version, parsed["config_version"])
}

func TestLoadSave_PreservesUnrecognizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"daily_trade_limit": 1,
		"profit_threshold_for_selling": 5.0,
		"loss_threshold_for_averaging": -3.0,
		"custom_note": "keep me"
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	store := NewStore(path)
	result := store.Load()
	require.Equal(t, LoadedFromFile, result.Status)

	require.NoError(t, store.Save(result.Document))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "keep me", parsed["custom_note"])
}

func mustSpec(t *testing.T, name string) ParameterSpec {
	t.Helper()
	spec, err := SpecFor(name)
	require.NoError(t, err)
	return spec
}
