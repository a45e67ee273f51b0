package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intersection.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"signal_id": "tls",
		"initial_phase": 1,
		"discharge_per_step": 2,
		"lanes": {
			"north": {"signal_phase": 0, "initial_vehicles": 8, "arrivals": {"20": 3}},
			"south": {"signal_phase": 1, "initial_vehicles": 4}
		}
	}`), 0o644))

	cfg, err := LoadScript(path)
	require.NoError(t, err)

	assert.Equal(t, "tls", cfg.SignalID)
	assert.Equal(t, 1, cfg.InitialPhase)
	assert.Equal(t, 2, cfg.DischargePerStep)
	require.Len(t, cfg.Lanes, 2)
	assert.Equal(t, 8, cfg.Lanes["north"].InitialVehicles)
	assert.Equal(t, 3, cfg.Lanes["north"].Arrivals[20])
	assert.Equal(t, 1, cfg.Lanes["south"].SignalPhase)
}

func TestLoadScriptRejectsBadInput(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"lanes": {}}`), 0o644))
	_, err = LoadScript(empty)
	assert.Error(t, err)
}
