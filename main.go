package main

import (
	"log"
	"os"
	"runtime"

	"julia_explorer/config"
	"julia_explorer/renderer"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	log.Println("Starting Julia explorer")
	log.Printf("Using GoLang: [%s]", runtime.Version())
}

func rendererOptions(cfg *config.Config) renderer.Options {
	return renderer.Options{
		Title:          renderer.PROGRAM_NAME,
		Width:          cfg.Width,
		Height:         cfg.Height,
		Hidden:         cfg.ExportOnly,
		Validation:     cfg.Validation,
		FramesInFlight: cfg.FramesInFlight,
		PresentMode:    cfg.PresentMode,
		FrameTimeout:   cfg.Timeout,
		ShaderPath:     cfg.Shader,
	}
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Cause(err) == pflag.ErrHelp {
			return
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	core, err := renderer.NewCore(rendererOptions(cfg))
	if err != nil {
		log.Fatalf("Failed to start the renderer: %+v", err)
	}
	defer core.Destroy()

	s := newSession(cfg)
	if cfg.ExportOnly {
		if err = exportState(core, cfg, &s.state); err != nil {
			core.Destroy()
			log.Fatalf("Export failed: %+v", err)
		}
		return
	}

	if err = core.Loop(s.onIteration, s.onDraw); err != nil {
		core.Destroy()
		log.Fatalf("Render loop failed: %+v", err)
	}
}
