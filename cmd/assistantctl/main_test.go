package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestLintEmbeddedDefinitions(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runLint(&out, ""))
	assert.Contains(t, out.String(), "carrier_switch")
	assert.Contains(t, out.String(), "esim_transfer")
	assert.Contains(t, out.String(), "welcome → check_contract")
}

func TestLintRejectsBrokenDefinition(t *testing.T) {
	dir := t.TempDir()
	broken := "id: broken\nname: broken\nsteps:\n  - id: a\n    type: info\n    next: missing\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(broken), 0o644))

	err := runLint(&bytes.Buffer{}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestWalkCarrierSwitchToAu(t *testing.T) {
	var out bytes.Buffer
	err := runWalk(context.Background(), &out, "", "carrier_switch", "docomo", "au", map[string]string{
		"enter_mnp_number": "1234567890",
		"check_contract":   "no",
	})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "activation_au")
	assert.NotContains(t, s, "contract_penalty_info")
	assert.Contains(t, s, "Completed carrier_switch (100%)")
}

func TestWalkSkipsCarrierSpecificSteps(t *testing.T) {
	var out bytes.Buffer
	err := runWalk(context.Background(), &out, "", "carrier_switch", "docomo", "softbank", map[string]string{
		"enter_mnp_number": "1234567890",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "skipped activation_au")
}

func TestWalkNeedsInputForValidationSteps(t *testing.T) {
	err := runWalk(context.Background(), &bytes.Buffer{}, "", "carrier_switch", "docomo", "au", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--answer enter_mnp_number=")
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	data := `items:
  - category: mnp_reservation
    question: 予約番号の有効期限は？
    answer: 発行日を含めて15日間です。
    keywords: [予約番号, 有効期限]
    priority: 5
  - category: carrier_specific
    subcategory: au
    question: au の回線切替窓口は？
    answer: Web または 0077-75470 です。
    carrier: au
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	reqs, err := loadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Nil(t, reqs[0].Carrier)
	assert.Equal(t, 5, reqs[0].Priority)
	require.NotNil(t, reqs[1].Carrier)
	assert.Equal(t, "au", *reqs[1].Carrier)
	assert.Equal(t, "au", *reqs[1].Subcategory)
}

func TestLoadSeedFileValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - category: fees\n    answer: no question\n"), 0o644))

	_, err := loadSeedFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}
