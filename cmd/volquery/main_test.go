package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constantDef = `{"task_id": "c1", "kind": "constant", "origin": "2025-01-02", "currency": "USD", "asset_id": "SPX", "vol": 0.25,
  "queries": [{"expiry": "1Y", "strike": 90, "forward": 100}, {"expiry": "2Y", "start": "1Y"}]}`

func TestRunSingleObject(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(constantDef), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out surfaceOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "c1", out.TaskID)
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.Empty(t, r.Error)
		assert.InDelta(t, 0.25, r.Vol, 1e-15)
	}
}

func TestRunArrayWithFailure(t *testing.T) {
	input := `[` + constantDef + `, {"task_id": "bad", "kind": "heston", "origin": "2025-01-02"}]`
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(input), &stdout, &stderr)
	assert.Equal(t, 1, code)

	var out []surfaceOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Error)
	assert.Equal(t, "bad", out[1].TaskID)
	assert.Contains(t, out[1].Error, "unsupported kind")
}

func TestRunYAMLInput(t *testing.T) {
	input := `
kind: sparse
origin: "2025-01-02"
currency: USD
asset_id: SPX
points:
  - {expiry: "1Y", strike: 100, vol: 0.2}
queries:
  - {expiry: "1Y", strike: 100, forward: 100}
  - {expiry: "1Y", strike: 105, forward: 100}
`
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(input), &stdout, &stderr)
	assert.Equal(t, 1, code)

	var out surfaceOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, 0.2, out.Results[0].Vol)
	assert.Contains(t, out.Results[1].Error, "not found")
}

func TestRunBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(nil, strings.NewReader(""), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-bogus"}, strings.NewReader(""), &stdout, &stderr))
	assert.Equal(t, 0, run([]string{"-h"}, strings.NewReader(""), &stdout, &stderr))
}
