package scenario

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `name: smoke
description: Minimal well-formed scenario.
owner: owner
start: 2026-01-01T00:00:00Z
accounts:
  owner: "0x0000000000000000000000000000000000000001"
  controller: "0x00000000000000000000000000000000000000c1"
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

func TestParse_Valid(t *testing.T) {
	s, err := Parse("smoke.yaml", []byte(validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, "owner", s.Owner)
	assert.True(t, s.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, s.Beacons, 2)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "heartbeat", s.Steps[0].Op)
}

func TestParse_DurationFields(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		"  - op: heartbeat\n    caller: owner\n",
		"  - op: advance\n    by: 49h30m\n", 1)

	s, err := Parse("smoke.yaml", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 49*time.Hour+30*time.Minute, s.Steps[0].By.Std())
}

func TestParse_UnknownOpRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML, "op: heartbeat", "op: frobnicate", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	doc := validScenarioYAML + "    bogus: true\n"

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestParse_MissingStepFieldRejected(t *testing.T) {
	// The schema cannot see per-op requirements; the Go pass catches them.
	doc := strings.Replace(validScenarioYAML,
		"  - op: heartbeat\n    caller: owner\n",
		"  - op: upgrade\n    caller: owner\n    controller: controller\n    beacon: beacon_a\n", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implementation is required")
}

func TestParse_WrongBeaconCountRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		"  - beacon: beacon_b\n    emergency: emergency_b\n", "", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestParse_BadAccountAddressRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		`"0x0000000000000000000000000000000000000001"`, `"0x01"`, 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestParse_BadDurationRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		"  - op: heartbeat\n    caller: owner\n",
		"  - op: advance\n    by: 2 hours\n", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestParse_BadExpectRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		"    caller: owner\n",
		"    caller: owner\n    expect: KABOOM\n", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestParse_EmptyStepsRejected(t *testing.T) {
	doc := strings.Replace(validScenarioYAML,
		"steps:\n  - op: heartbeat\n    caller: owner\n",
		"steps: []\n", 1)

	_, err := Parse("smoke.yaml", []byte(doc))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	s, err := Load("testdata/contingency-cycle.yaml")
	require.NoError(t, err)
	assert.Equal(t, "contingency-cycle", s.Name)
	assert.Len(t, s.Steps, 5)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/no-such-scenario.yaml")
	assert.Error(t, err)
}
