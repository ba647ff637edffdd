package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/governance"
	"github.com/roach88/beaconctl/internal/store"
)

const testScenarioYAML = `name: smoke
description: Heartbeat once.
owner: owner
start: 2026-01-01T00:00:00Z
accounts:
  owner: "0x0000000000000000000000000000000000000001"
  beacon_a: "0x00000000000000000000000000000000000000b1"
  beacon_b: "0x00000000000000000000000000000000000000b2"
  emergency_a: "0x00000000000000000000000000000000000000e1"
  emergency_b: "0x00000000000000000000000000000000000000e2"
beacons:
  - beacon: beacon_a
    emergency: emergency_a
  - beacon: beacon_b
    emergency: emergency_b
steps:
  - op: heartbeat
    caller: owner
`

// execute runs the root command with args in an isolated working directory,
// so a developer's beaconctl.toml cannot leak into the test.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenarioYAML), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeScenario(t)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (smoke, 1 steps)")
}

func TestValidateCommand_BadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\n"), 0o644))

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSimulateCommand_Text(t *testing.T) {
	path := writeScenario(t)

	out, err := execute(t, "simulate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario smoke: 1 steps ok")
	assert.Contains(t, out, "heartbeat")
	assert.Contains(t, out, "Final beacon implementations:")
}

func TestSimulateCommand_JSON(t *testing.T) {
	path := writeScenario(t)

	out, err := execute(t, "simulate", path, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "smoke", data["scenario"])
}

func TestSimulateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "simulate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatusCommand_MissingDB(t *testing.T) {
	_, err := execute(t, "status", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatusCommand_SeededDB(t *testing.T) {
	path := seedDB(t)

	out, err := execute(t, "status", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Owner:             0x0000000000000000000000000000000000000001")
	assert.Contains(t, out, "Heartbeat expired: false")
	assert.Contains(t, out, "Contingencies:     none")
}

func TestEventsCommand_EmptyJournal(t *testing.T) {
	path := seedDB(t)

	out, err := execute(t, "events", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no events")
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	path := writeScenario(t)

	_, err := execute(t, "validate", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigFile_SetsFormat(t *testing.T) {
	scenarioPath := writeScenario(t)
	cfgPath := filepath.Join(t.TempDir(), "beaconctl.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format = \"json\"\n"), 0o644))

	out, err := execute(t, "validate", scenarioPath, "--config", cfgPath)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestConfigFile_FlagWins(t *testing.T) {
	scenarioPath := writeScenario(t)
	cfgPath := filepath.Join(t.TempDir(), "beaconctl.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format = \"json\"\n"), 0o644))

	out, err := execute(t, "validate", scenarioPath, "--config", cfgPath, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "ok (smoke, 1 steps)")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "boom", nil)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

// seedDB creates a governance database with an initialized orchestrator.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "governance.db")

	owner := chain.MustAddress("0x0000000000000000000000000000000000000001")
	emergencyA := chain.MustAddress("0x00000000000000000000000000000000000000e1")
	emergencyB := chain.MustAddress("0x00000000000000000000000000000000000000e2")
	beaconA := chain.MustAddress("0x00000000000000000000000000000000000000b1")
	beaconB := chain.MustAddress("0x00000000000000000000000000000000000000b2")

	net := chain.NewMemNetwork()
	var hashes [2]chain.Hash
	for i, addr := range []chain.Address{emergencyA, emergencyB} {
		code := []byte("code:" + addr.String())
		net.SetCode(addr, code)
		hashes[i] = sha256.Sum256(code)
	}

	db, err := store.Open(path)
	require.NoError(t, err)
	_, err = governance.New(context.Background(), governance.Config{
		Store:   db,
		Network: net,
		Owner:   owner,
		Beacons: [2]governance.BeaconConstant{
			{Beacon: beaconA, EmergencyImplementation: emergencyA, CodeHash: hashes[0]},
			{Beacon: beaconB, EmergencyImplementation: emergencyB, CodeHash: hashes[1]},
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}
