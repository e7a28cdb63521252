package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartgallery/internal/domain"
	"chartgallery/internal/gallery"
	"chartgallery/internal/store"
)

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, splitArgs([]string{"aapl, msft", " goog "}))
	assert.Empty(t, splitArgs([]string{" , "}))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "gallery-cli dev\n", out.String())
}

func TestRebuildCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.html"), []byte("<html></html>"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"rebuild", dir})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "1 charts")
	_, err := os.Stat(filepath.Join(dir, gallery.IndexFile))
	assert.NoError(t, err)
}

func TestCacheCommand(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"cache", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "is empty")

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.NewParquetStore(dir).WriteBars(context.Background(), []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Close: 370},
		{Symbol: "AAPL", Timestamp: day, Close: 185},
	}))

	out.Reset()
	rootCmd.SetArgs([]string{"cache", dir})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "AAPL\nMSFT\n", out.String())
}
