package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy2d"
	app.Usage = "batched 2D rendering on WebGPU"
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
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load engine settings from a yaml file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "demo",
			Usage: "open a window and draw every primitive family",
			Description: `
Draw rectangles, rounded rectangles, circles, lines, a texture, a slider body,
a render target and a flashlight mask every frame.

Keys: S saves a screenshot, V cycles the present mode, F toggles the flashlight,
Esc quits.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "screenshot-dir",
					Value: ".",
					Usage: "directory screenshots are written to",
				},
			},
			Action: RunDemo,
		},
		{
			Name:  "bench",
			Usage: "batch frames against the headless backend",
			Description: `
Submit a fixed number of frames, each drawing the requested number of rectangles,
and report how they were partitioned into buffers and draw calls.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "frames, n",
					Value: 600,
					Usage: "number of frames to render",
				},
				cli.IntFlag{
					Name:  "rects, r",
					Value: 10000,
					Usage: "rectangles drawn per frame",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 1280,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 720,
					Usage: "frame height",
				},
				cli.BoolFlag{
					Name:  "mixed",
					Usage: "alternate blend modes to force pipeline switches",
				},
			},
			Action: RunBench,
		},
	}

	app.Run(os.Args)
}
