// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
	"github.com/jeremyhahn/go-sslpinning/pkg/settings"
	"github.com/jeremyhahn/go-sslpinning/pkg/sslpinning"
)

func TestValidate(t *testing.T) {
	buf := captureOutput(t, validateCmd)
	validateConfigFile = writeTestFile(t, "config.json", validPayload)
	defer func() { validateConfigFile = "" }()

	require.NoError(t, runValidate(validateCmd, nil))
	assert.Equal(t, "api.example.com\t2 pin(s)\n", buf.String())
}

func TestValidate_Invalid(t *testing.T) {
	validateConfigFile = writeTestFile(t, "config.json", invalidPayload)
	defer func() { validateConfigFile = "" }()

	err := runValidate(validateCmd, nil)
	var pinErr *pinconfig.PinError
	require.ErrorAs(t, err, &pinErr)
	assert.Equal(t, "api.example.com", pinErr.Hostname)
	assert.Equal(t, ExitConfigError, exitCode(err))
}

func TestValidate_MissingFlag(t *testing.T) {
	validateConfigFile = ""
	assert.ErrorIs(t, runValidate(validateCmd, nil), ErrInvalidInput)
}

func readStatus(t *testing.T) statusReport {
	t.Helper()
	buf := captureOutput(t, statusCmd)
	require.NoError(t, runStatus(statusCmd, nil))

	var report statusReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	return report
}

func TestEnableDisableStatus(t *testing.T) {
	path := useSettings(t)

	report := readStatus(t)
	assert.True(t, report.Enabled, "pinning defaults to enabled")
	assert.False(t, report.Override)
	assert.Equal(t, path, report.Settings)
	assert.Equal(t, "json", report.Format)

	require.NoError(t, disableCmd.RunE(disableCmd, nil))
	assert.False(t, readStatus(t).Enabled)

	require.NoError(t, enableCmd.RunE(enableCmd, nil))
	assert.True(t, readStatus(t).Enabled)
}

func TestOverrideSetAndClear(t *testing.T) {
	useSettings(t)
	overrideConfigFile = writeTestFile(t, "config.json", validPayload)
	defer func() { overrideConfigFile = "" }()

	require.NoError(t, runOverrideSet(overrideSetCmd, nil))
	report := readStatus(t)
	assert.True(t, report.Override)
	require.NotNil(t, report.Valid)
	assert.True(t, *report.Valid)
	assert.Equal(t, []string{"api.example.com"}, report.Hostnames)

	require.NoError(t, overrideClearCmd.RunE(overrideClearCmd, nil))
	assert.False(t, readStatus(t).Override)
}

func TestOverrideSet_RejectsInvalid(t *testing.T) {
	path := useSettings(t)
	overrideConfigFile = writeTestFile(t, "config.json", invalidPayload)
	defer func() { overrideConfigFile = "" }()

	assert.ErrorIs(t, runOverrideSet(overrideSetCmd, nil), pinconfig.ErrInvalidPinConfiguration)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing persisted")
}

func TestStatus_YAMLSettings(t *testing.T) {
	old := settingsPath
	settingsPath = filepath.Join(t.TempDir(), "settings.yaml")
	defer func() { settingsPath = old }()

	store, err := settings.NewFileStore(settingsPath)
	require.NoError(t, err)
	require.NoError(t, store.SetConfigOverride(invalidPayload))

	report := readStatus(t)
	assert.Equal(t, "yaml", report.Format)
	require.NotNil(t, report.Valid)
	assert.False(t, *report.Valid)
	assert.Empty(t, report.Hostnames)
}

func runInitCapture(t *testing.T) (*sslpinning.Result, error) {
	t.Helper()
	buf := captureOutput(t, initCmd)
	if err := runInit(initCmd, nil); err != nil {
		return nil, err
	}
	var result sslpinning.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	return &result, nil
}

func TestInit_FromAsset(t *testing.T) {
	useSettings(t)
	initConfigFile = ""
	initAssetFile = writeTestFile(t, pinconfig.DefaultAssetName, validPayload)
	defer func() { initAssetFile = pinconfig.DefaultAssetName }()

	result, err := runInitCapture(t)
	require.NoError(t, err)
	assert.Equal(t, sslpinning.MessageInitialized, result.Message)
	assert.Equal(t, []string{"api.example.com"}, result.Domains)
	assert.True(t, result.Enabled)
	assert.True(t, result.Active)
}

func TestInit_ExplicitConfigWins(t *testing.T) {
	useSettings(t)
	explicit := `{"sha256Keys":{"explicit.example.com":["sha256/` + testDigest + `"]}}`
	initConfigFile = writeTestFile(t, "explicit.json", explicit)
	initAssetFile = writeTestFile(t, pinconfig.DefaultAssetName, validPayload)
	defer func() {
		initConfigFile = ""
		initAssetFile = pinconfig.DefaultAssetName
	}()

	result, err := runInitCapture(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"explicit.example.com"}, result.Domains)
}

func TestInit_Disabled(t *testing.T) {
	useSettings(t)
	require.NoError(t, setUsePinning(false))
	initConfigFile = writeTestFile(t, "config.json", invalidPayload)
	defer func() { initConfigFile = "" }()

	result, err := runInitCapture(t)
	require.NoError(t, err, "validation is skipped while disabled")
	assert.Equal(t, sslpinning.MessageDisabled, result.Message)
	assert.Empty(t, result.Domains)
	assert.False(t, result.Enabled)
}

func TestInit_Errors(t *testing.T) {
	useSettings(t)
	initConfigFile = writeTestFile(t, "config.json", invalidPayload)
	defer func() {
		initConfigFile = ""
		initAssetFile = pinconfig.DefaultAssetName
	}()

	_, err := runInitCapture(t)
	assert.ErrorIs(t, err, pinconfig.ErrInvalidPinConfiguration)
	assert.Contains(t, err.Error(), sslpinning.CodeInvalidPinConfiguration)

	initConfigFile = ""
	initAssetFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = runInitCapture(t)
	assert.ErrorIs(t, err, pinconfig.ErrConfigUnavailable)
	assert.Contains(t, err.Error(), sslpinning.CodeConfigUnavailable)
	assert.Equal(t, ExitConfigError, exitCode(err))
}

func TestLink(t *testing.T) {
	assets := filepath.Join(t.TempDir(), "app", "assets")
	linkConfigFile = writeTestFile(t, "config.json", "  "+validPayload+"\n")
	linkAssetsDir = assets
	defer func() {
		linkConfigFile = "ssl_config.json"
		linkAssetsDir = ""
	}()

	require.NoError(t, runLink(linkCmd, nil))

	data, err := os.ReadFile(filepath.Join(assets, pinconfig.DefaultAssetName))
	require.NoError(t, err)
	assert.JSONEq(t, validPayload, string(data))
	assert.Contains(t, string(data), "\n  \"sha256Keys\"", "written indented")
}

func TestLink_Errors(t *testing.T) {
	linkAssetsDir = ""
	assert.ErrorIs(t, runLink(linkCmd, nil), ErrInvalidInput)

	assets := t.TempDir()
	linkAssetsDir = assets
	linkConfigFile = writeTestFile(t, "config.json", invalidPayload)
	defer func() {
		linkConfigFile = "ssl_config.json"
		linkAssetsDir = ""
	}()

	assert.ErrorIs(t, runLink(linkCmd, nil), pinconfig.ErrInvalidPinConfiguration)
	_, err := os.Stat(filepath.Join(assets, pinconfig.DefaultAssetName))
	assert.True(t, os.IsNotExist(err), "invalid configuration is not linked")
}
