package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riskyFlyDef = `{
  "task_id": "zar",
  "kind": "riskyfly",
  "origin": "2025-01-02",
  "currency": "ZAR",
  "asset_id": "USDZAR",
  "expiries": ["6M", "1Y", "2Y"],
  "labels": ["6M", "1Y", "2Y"],
  "forwards": [18.2, 18.5, 19.1],
  "atms": [0.15, 0.16, 0.17],
  "wing_deltas": [0.25, 0.1],
  "riskies": [[0.01, 0.02], [0.012, 0.024], [0.014, 0.028]],
  "flies": [[0.003, 0.008], [0.004, 0.01], [0.005, 0.012]]
}`

func TestVegaLadder(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-bump", "0.01"}, strings.NewReader(riskyFlyDef), &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())

	var out ladderOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Ladder, 3)
	labels := []string{"6M", "1Y", "2Y"}
	for i, row := range out.Ladder {
		assert.Equal(t, labels[i], row.Label)
		assert.InDelta(t, 0.01, row.Change, 1e-4, row.Label)
	}
}

func TestRegaLadderAndUnsupportedKinds(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-kind", "rega", "-mode", "outer", "-last-date", "2025-07-02"}, strings.NewReader(riskyFlyDef), &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())
	var out ladderOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Len(t, out.Ladder, 3)

	stdout.Reset()
	constant := `{"kind": "constant", "origin": "2025-01-02", "vol": 0.2}`
	code = run([]string{"-kind", "sega"}, strings.NewReader(constant), &stdout, &stderr)
	assert.Equal(t, 1, code)
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out.Error, "not supported")

	assert.Equal(t, 2, run([]string{"-mode", "sideways"}, strings.NewReader(constant), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-kind", "theta"}, strings.NewReader(constant), &stdout, &stderr))
}

func TestConstantVegaLadder(t *testing.T) {
	var stdout, stderr bytes.Buffer
	constant := `{"kind": "constant", "origin": "2025-01-02", "vol": 0.2}`
	require.Equal(t, 0, run(nil, strings.NewReader(constant), &stdout, &stderr))
	var out ladderOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Ladder, 1)
	assert.Equal(t, "ALL", out.Ladder[0].Label)
	assert.InDelta(t, 0.01, out.Ladder[0].Change, 1e-12)
}
