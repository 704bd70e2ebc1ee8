package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Site struct {
		BaseUrl string `json:"base_url"`
		Timeout int    `json:"timeout_seconds"`
	} `json:"site"`
	Tags []string `json:"tags"`
}

func writeFile(t testing.TB, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigJson5WithOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		site: { base_url: "https://example.com/", timeout_seconds: 15 },
		tags: ["a"],
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		site: { timeout_seconds: 30 },
	}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", config.Site.BaseUrl)
	require.Equal(t, 30, config.Site.Timeout)
	require.Equal(t, []string{"a"}, config.Tags)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
site:
  base_url: https://example.com/
  timeout_seconds: 15
tags:
  - x
  - y
`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", config.Site.BaseUrl)
	require.Equal(t, 15, config.Site.Timeout)
	require.Equal(t, []string{"x", "y"}, config.Tags)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{ site: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}
