package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Exponent)
	assert.Equal(t, float32(0.2), cfg.RealPart)
	assert.Equal(t, uint32(100), cfg.Iters)
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(1600), cfg.ExportWidth)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, mgl32.Vec2{0, 0}, cfg.CenterPoint)
	assert.Equal(t, []mgl32.Vec4{{0, 0, 0, 1}, {1, 1, 1, 1}}, cfg.Gradient.Colors)
	assert.Equal(t, []float32{1}, cfg.Gradient.Midpoints)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load([]string{
		"-n", "3", "-r", "-0.8", "-i", "0.156", "-m", "250",
		"-w", "1024", "-h", "768", "-c", "navy,#fc0,white,0.1,0.5",
		"-O", "0.5,-0.25", "-e", "1.5",
		"--export-width", "640", "--export-height", "480",
		"--frames-in-flight", "3", "--present-mode", "mailbox", "--frame-timeout", "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Exponent)
	assert.Equal(t, float32(-0.8), cfg.RealPart)
	assert.Equal(t, float32(0.156), cfg.ImagPart)
	assert.Equal(t, uint32(250), cfg.Iters)
	assert.Equal(t, uint32(768), cfg.Height)
	assert.Equal(t, mgl32.Vec2{0.5, -0.25}, cfg.CenterPoint)
	assert.Equal(t, float32(1.5), cfg.Extent)
	assert.Equal(t, uint32(480), cfg.ExportHeight)
	assert.Equal(t, 3, cfg.FramesInFlight)
	assert.Equal(t, "mailbox", cfg.PresentMode)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Len(t, cfg.Gradient.Colors, 3)
	assert.Equal(t, []float32{0.1, 0.5}, cfg.Gradient.Midpoints)
}

func TestLoadFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.toml")
	err := os.WriteFile(path, []byte(`
exponent = 4
iters = 500
colors = "red,blue"
center = "1,1"
`), 0o644)
	require.NoError(t, err)

	cfg, err := Load([]string{"--config", path, "-m", "50"})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 4, cfg.Exponent, "file overrides defaults")
	assert.Equal(t, uint32(50), cfg.Iters, "flags override the file")
	assert.Equal(t, mgl32.Vec2{1, 1}, cfg.CenterPoint)
	assert.Equal(t, float32(0.2), cfg.RealPart, "defaults survive when neither sets a value")
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("exponnent = 3\n"), 0o644))

	_, err := Load([]string{"-C", path})
	assert.Error(t, err)
}

func TestLoadHelp(t *testing.T) {
	_, err := Load([]string{"--help"})
	require.Error(t, err)
	assert.Equal(t, pflag.ErrHelp, errors.Cause(err))
}

func TestLoadRejects(t *testing.T) {
	cases := map[string][]string{
		"exponent too small":  {"-n", "1"},
		"exponent too large":  {"-n", "12"},
		"zero iterations":     {"-m", "0"},
		"zero width":          {"-w", "0"},
		"zero export height":  {"--export-height", "0"},
		"negative extent":     {"-e", "-1"},
		"zero extent":         {"-e", "0"},
		"no frames in flight": {"--frames-in-flight", "0"},
		"too many frames":     {"--frames-in-flight", "4"},
		"present mode":        {"--present-mode", "vsync"},
		"zero timeout":        {"--frame-timeout", "0s"},
		"bad timeout":         {"--frame-timeout", "soon"},
		"bad center":          {"-O", "1"},
		"bad colors":          {"-c", "black"},
		"stray argument":      {"out.png"},
		"unknown flag":        {"--zoom", "2"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestInitialState(t *testing.T) {
	cfg, err := Load([]string{"-w", "400", "-h", "200", "-e", "2", "-O", "1,0", "-r", "0.3", "-i", "-0.1"})
	require.NoError(t, err)

	s := cfg.InitialState()
	assert.Equal(t, uint32(2), s.N)
	assert.Equal(t, mgl32.Vec2{0.3, -0.1}, s.C)
	assert.Equal(t, mgl32.Vec2{1, 0}, s.Viewport.Center)
	assert.Equal(t, mgl32.Vec2{2, 1}, s.Viewport.Extents)

	// The state owns its slices
	s.Colors[0] = mgl32.Vec4{1, 0, 0, 1}
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, cfg.Gradient.Colors[0])
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" -0.5 , 2 ")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec2{-0.5, 2}, p)

	for _, s := range []string{"", "1", "1,2,3", "a,b"} {
		if _, err := ParsePoint(s); err == nil {
			t.Errorf("ParsePoint(%q) succeeded", s)
		}
	}
}
