package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"julia_explorer/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config is the validated startup configuration. The string fields are what a user types, either on the command
// line or in a TOML file with the same keys as the long flag names. Load fills the parsed fields below them.
type Config struct {
	Exponent int     `toml:"exponent"`
	RealPart float32 `toml:"real-part"`
	ImagPart float32 `toml:"imaginary-part"`
	Iters    uint32  `toml:"iters"`
	Width    uint32  `toml:"width"`
	Height   uint32  `toml:"height"`
	Colors   string  `toml:"colors"`
	Center   string  `toml:"center"`
	Extent   float32 `toml:"extent"`
	Output   string  `toml:"output"`

	ExportWidth  uint32 `toml:"export-width"`
	ExportHeight uint32 `toml:"export-height"`
	ExportOnly   bool   `toml:"export-only"`

	Shader         string `toml:"shader"`
	Validation     bool   `toml:"validation"`
	FramesInFlight int    `toml:"frames-in-flight"`
	PresentMode    string `toml:"present-mode"`
	FrameTimeout   string `toml:"frame-timeout"`

	// File is the TOML file the values were read from, if any.
	File string `toml:"-"`

	Gradient    Gradient      `toml:"-"`
	CenterPoint mgl32.Vec2    `toml:"-"`
	Timeout     time.Duration `toml:"-"`
}

const (
	MinFramesInFlight = 1
	MaxFramesInFlight = 3
)

var PresentModes = []string{"fifo", "mailbox", "immediate"}

func Defaults() *Config {
	return &Config{
		Exponent:       2,
		RealPart:       0.2,
		ImagPart:       0,
		Iters:          100,
		Width:          800,
		Height:         800,
		Colors:         "black,white",
		Center:         "0,0",
		Extent:         3.6,
		ExportWidth:    1600,
		ExportHeight:   1200,
		FramesInFlight: 2,
		PresentMode:    "fifo",
		FrameTimeout:   "1s",
	}
}

// Load builds the configuration from defaults, an optional TOML file named by --config and the command line, in
// that order of increasing precedence. args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := Defaults()
	fs := cfg.flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse command line")
	}

	if cfg.File != "" {
		// Read the file over fresh defaults, then let the command line win again
		file := cfg.File
		cfg = Defaults()
		if err := cfg.readFile(file); err != nil {
			return nil, err
		}
		cfg.File = file
		fs = cfg.flagSet()
		if err := fs.Parse(args); err != nil {
			return nil, errors.Wrap(err, "parse command line")
		}
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagSet binds every option to cfg, using the current values as defaults.
func (cfg *Config) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("julia_explorer", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&cfg.File, "config", "C", cfg.File, "TOML file with default values for any of the long options")
	fs.IntVarP(&cfg.Exponent, "exponent", "n", cfg.Exponent, "exponent n of z^n + c, 2 to 11")
	fs.Float32VarP(&cfg.RealPart, "real-part", "r", cfg.RealPart, "real part of c")
	fs.Float32VarP(&cfg.ImagPart, "imaginary-part", "i", cfg.ImagPart, "imaginary part of c")
	fs.Uint32VarP(&cfg.Iters, "iters", "m", cfg.Iters, "iteration cap")
	fs.Uint32VarP(&cfg.Width, "width", "w", cfg.Width, "window width in pixels")
	fs.Uint32VarP(&cfg.Height, "height", "h", cfg.Height, "window height in pixels")
	fs.StringVarP(&cfg.Colors, "colors", "c", cfg.Colors, "gradient: c1,c2[,c3][,m1[,m2[,m3]]] with CSS names or #hex colors")
	fs.StringVarP(&cfg.Center, "center", "O", cfg.Center, "viewport center as re,im")
	fs.Float32VarP(&cfg.Extent, "extent", "e", cfg.Extent, "half extent of the larger window dimension on the complex plane")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "export file name, generated from the parameters when empty")
	fs.Uint32Var(&cfg.ExportWidth, "export-width", cfg.ExportWidth, "export width in pixels")
	fs.Uint32Var(&cfg.ExportHeight, "export-height", cfg.ExportHeight, "export height in pixels")
	fs.BoolVar(&cfg.ExportOnly, "export-only", cfg.ExportOnly, "render one export and exit")
	fs.StringVar(&cfg.Shader, "shader", cfg.Shader, "compute kernel override (.wgsl or .spv), reloaded on change")
	fs.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable Vulkan validation layers")
	fs.IntVar(&cfg.FramesInFlight, "frames-in-flight", cfg.FramesInFlight, "frames the CPU may record ahead of the GPU, 1 to 3")
	fs.StringVar(&cfg.PresentMode, "present-mode", cfg.PresentMode, "fifo, mailbox or immediate")
	fs.StringVar(&cfg.FrameTimeout, "frame-timeout", cfg.FrameTimeout, "bound on every per frame wait")
	return fs
}

func (cfg *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(cfg); err != nil {
		return errors.Wrapf(err, "decode config file %s", path)
	}
	return nil
}

// finish parses the string options and validates the result.
func (cfg *Config) finish() error {
	var err error
	if cfg.Gradient, err = ParseGradient(cfg.Colors); err != nil {
		return errors.Wrap(err, "colors")
	}
	if cfg.CenterPoint, err = ParsePoint(cfg.Center); err != nil {
		return errors.Wrap(err, "center")
	}
	if cfg.Timeout, err = time.ParseDuration(cfg.FrameTimeout); err != nil {
		return errors.Wrap(err, "frame-timeout")
	}
	return cfg.Validate()
}

// Validate checks the numeric ranges. It expects the parsed fields to be set.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Exponent < model.MinExponent || cfg.Exponent > model.MaxExponent:
		return errors.Errorf("exponent %d outside [%d, %d]", cfg.Exponent, model.MinExponent, model.MaxExponent)
	case cfg.Iters < 1:
		return errors.New("iters must be at least 1")
	case cfg.Width < 1 || cfg.Height < 1:
		return errors.Errorf("window size %dx%d must be at least 1x1", cfg.Width, cfg.Height)
	case cfg.ExportWidth < 1 || cfg.ExportHeight < 1:
		return errors.Errorf("export size %dx%d must be at least 1x1", cfg.ExportWidth, cfg.ExportHeight)
	case !(cfg.Extent > 0):
		return errors.Errorf("extent %g must be positive", cfg.Extent)
	case cfg.FramesInFlight < MinFramesInFlight || cfg.FramesInFlight > MaxFramesInFlight:
		return errors.Errorf("frames-in-flight %d outside [%d, %d]", cfg.FramesInFlight, MinFramesInFlight, MaxFramesInFlight)
	case cfg.Timeout <= 0:
		return errors.Errorf("frame-timeout %v must be positive", cfg.Timeout)
	}
	for _, m := range PresentModes {
		if cfg.PresentMode == m {
			return nil
		}
	}
	return errors.Errorf("present-mode %q is not one of %s", cfg.PresentMode, strings.Join(PresentModes, ", "))
}

// ParsePoint reads "re,im".
func ParsePoint(s string) (mgl32.Vec2, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return mgl32.Vec2{}, errors.Errorf("want re,im, got %q", s)
	}
	var p mgl32.Vec2
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return mgl32.Vec2{}, errors.Wrapf(err, "parse %q", s)
		}
		p[i] = float32(v)
	}
	return p, nil
}

// InitialState is the visualization the session starts with and R resets to.
func (cfg *Config) InitialState() model.VisualizationState {
	return model.VisualizationState{
		N:         uint32(cfg.Exponent),
		C:         mgl32.Vec2{cfg.RealPart, cfg.ImagPart},
		Iters:     cfg.Iters,
		Viewport:  model.NewViewport(cfg.CenterPoint, cfg.Extent, cfg.Width, cfg.Height),
		Colors:    append([]mgl32.Vec4(nil), cfg.Gradient.Colors...),
		Midpoints: append([]float32(nil), cfg.Gradient.Midpoints...),
	}
}
