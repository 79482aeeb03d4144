package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"photokiosk/internal/models"
	"photokiosk/internal/storage"
)

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "cleanup"}, names)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o644))
	t.Setenv("PHOTOKIOSK_DATABASE_URL", "")

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run([]string{"photokiosk", "--config", path, "migrate"})
	assert.ErrorContains(t, err, "database_url")
}

func TestSeedFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b-modern.png", "a-klasik.png"} {
		require.NoError(t, imaging.Save(imaging.New(4, 4, color.NRGBA{}), filepath.Join(dir, name)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	mem := storage.NewMemory()
	require.NoError(t, seedFrames(context.Background(), mem, dir))
	require.NoError(t, seedFrames(context.Background(), mem, dir), "seeding twice upserts")

	frames, err := mem.ListFrames(context.Background())
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "a-klasik", frames[0].Name)
	assert.Equal(t, "a-klasik.png", frames[0].ImageURL)
	assert.True(t, frames[1].IsActive)
}

func TestOpenStore_MemoryFallback(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.FramesDir = t.TempDir()

	s, closeFn, err := openStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &storage.Memory{}, s)
}

func TestOpenDevice(t *testing.T) {
	cfg := models.DefaultConfig()
	_, push, err := openDevice(cfg)
	require.NoError(t, err)
	assert.NotNil(t, push)

	cfg.CameraSource = models.CameraSourceStill
	cfg.StillImage = filepath.Join(t.TempDir(), "missing.png")
	_, _, err = openDevice(cfg)
	assert.Error(t, err)
}
