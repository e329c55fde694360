package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/cmd"
	"github.com/urfave/cli"
)

func main() {
	sceneFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 800,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 600,
			Usage: "frame height",
		},
		cli.StringFlag{
			Name:  "backend, b",
			Value: "software",
			Usage: "renderer backend: software or wgpu",
		},
		cli.Float64Flag{
			Name:  "threshold",
			Value: 0.25,
			Usage: "roughness at or below which surfaces spawn reflection rays",
		},
		cli.IntFlag{
			Name:  "bounces",
			Value: 3,
			Usage: "reflection bounces traced per ray chain",
		},
		cli.IntFlag{
			Name:  "capacity",
			Value: 0,
			Usage: "ray node slots per frame, 0 sizes the buffer for full chains",
		},
		cli.BoolFlag{
			Name:  "cull",
			Usage: "ignore back facing triangles while tracing",
		},
		cli.Float64Flag{
			Name:  "ambient",
			Value: 0.1,
			Usage: "ambient factor applied to the albedo",
		},
		cli.IntFlag{
			Name:  "shadow-size",
			Value: 1024,
			Usage: "shadow map edge length in texels",
		},
		cli.StringFlag{
			Name:  "texture",
			Usage: "image file used for the floor instead of the checker pattern",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "software backend worker count, 0 uses one per CPU",
		},
		cli.BoolFlag{
			Name:  "fallback-adapter",
			Usage: "force the wgpu backend onto a software fallback adapter",
		},
	}

	app := cli.NewApp()
	app.Name = "oxy-rt"
	app.Usage = "render scenes with a rasterized g-buffer and traced reflections"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a single frame of the demo scene",
			Description: `
Rasterize the demo scene into a g-buffer, trace reflection chains from every
pixel smoother than the roughness threshold and composite the lit result.

The frame is written as a PNG and the per stage timings are logged.`,
			Flags: append(append([]cli.Flag{}, sceneFlags...),
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:        "interactive",
			Usage:       "render an interactive view of the demo scene",
			Description: `Open a window and present frames with the wgpu backend until it is closed.`,
			Flags: append(append([]cli.Flag{}, sceneFlags...),
				cli.BoolFlag{
					Name:  "vsync",
					Usage: "wait for vertical blank before presenting",
				},
				cli.BoolFlag{
					Name:  "profile",
					Usage: "log frame statistics once per second",
				},
				cli.Float64Flag{
					Name:  "fps",
					Value: 0,
					Usage: "render frame rate cap, 0 is uncapped",
				},
			),
			Action: cmd.RenderInteractive,
		},
		{
			Name:   "list-adapters",
			Usage:  "list available WebGPU adapters",
			Action: cmd.ListAdapters,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
