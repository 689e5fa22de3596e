// Package config loads the YAML settings of the window, renderer and backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/loader"
	"github.com/Carmen-Shannon/oxy2d/engine/log"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy2d/engine/window"

	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the config file read by Load.
const maxConfigSize = 1024 * 1024

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the root of the YAML document.
type Config struct {
	Window   Window   `yaml:"window"`
	Renderer Renderer `yaml:"renderer"`
	Profiler Profiler `yaml:"profiler"`
	Log      Log      `yaml:"log"`
}

// Window holds the window settings.
type Window struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Resizable bool   `yaml:"resizable"`
	// MaxWidth and MaxHeight bound user resizing. Zero leaves a side unconstrained.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

// Renderer holds the renderer and backend settings.
type Renderer struct {
	// PresentMode is one of "vsync", "uncapped" or "mailbox".
	PresentMode       string       `yaml:"present_mode"`
	ClearColor        common.Color `yaml:"clear_color,flow"`
	AtlasSize         uint32       `yaml:"atlas_size"`
	AtlasLayers       uint32       `yaml:"atlas_layers"`
	AtlasPadding      uint32       `yaml:"atlas_padding"`
	ScreenshotWorkers int          `yaml:"screenshot_workers"`
	FallbackAdapter   bool         `yaml:"fallback_adapter"`
	// FrameLimit caps rendered frames per second. Zero leaves the render loop uncapped.
	FrameLimit float64 `yaml:"frame_limit"`
	// MaxTexturePixels is the largest image, in pixels, the texture loader decodes.
	MaxTexturePixels uint64     `yaml:"max_texture_pixels"`
	Capacities       Capacities `yaml:"capacities"`
}

// Capacities mirrors batch.Capacities.
type Capacities struct {
	Vertex     Usage `yaml:"vertex"`
	Slider     Usage `yaml:"slider"`
	Flashlight Usage `yaml:"flashlight"`
}

// Usage mirrors batch.Usage.
type Usage struct {
	Vertices int `yaml:"vertices"`
	Indices  int `yaml:"indices"`
	Objects  int `yaml:"objects,omitempty"`
	Cells    int `yaml:"cells,omitempty"`
	Segments int `yaml:"segments,omitempty"`
}

// Profiler holds the frame statistics logger settings.
type Profiler struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Log holds the logging settings.
type Log struct {
	// Level is one of "debug", "info", "notice", "warning" or "error".
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	caps := batch.DefaultCapacities()
	return Config{
		Window: Window{
			Title:     "oxy2d",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Renderer: Renderer{
			PresentMode:       renderer.PresentModeVSync.String(),
			ClearColor:        common.Black,
			AtlasSize:         gpu.DefaultAtlasSize,
			AtlasLayers:       gpu.DefaultAtlasLayers,
			AtlasPadding:      1,
			ScreenshotWorkers: 2,
			MaxTexturePixels:  loader.DefaultMaxPixels,
			Capacities: Capacities{
				Vertex:     usageFrom(caps.Vertex),
				Slider:     usageFrom(caps.Slider),
				Flashlight: usageFrom(caps.Flashlight),
			},
		},
		Profiler: Profiler{
			Interval: time.Second,
		},
		Log: Log{
			Level: "notice",
		},
	}
}

// Load reads and validates the YAML file at path. Fields missing from the file keep their defaults.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("config %s is %d bytes; limit is %d", path, info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Fields missing from the document keep their defaults.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the configuration
//   - error: error if the document cannot be parsed or validated
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field. The returned error wraps ErrInvalid.
//
// Returns:
//   - error: nil if the configuration is usable
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fail("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Window.MaxWidth < 0 || c.Window.MaxWidth > 0 && c.Window.MaxWidth < c.Window.Width {
		fail("window max width %d must be zero or at least the width %d", c.Window.MaxWidth, c.Window.Width)
	}
	if c.Window.MaxHeight < 0 || c.Window.MaxHeight > 0 && c.Window.MaxHeight < c.Window.Height {
		fail("window max height %d must be zero or at least the height %d", c.Window.MaxHeight, c.Window.Height)
	}

	r := c.Renderer
	if _, ok := ParsePresentMode(r.PresentMode); !ok {
		fail("unknown present mode %q", r.PresentMode)
	}
	for i, v := range r.ClearColor {
		if v < 0 || v > 1 {
			fail("clear color component %d is %g; must be within [0, 1]", i, v)
		}
	}
	if r.AtlasSize < 64 || r.AtlasSize > 16384 || r.AtlasSize&(r.AtlasSize-1) != 0 {
		fail("atlas size %d must be a power of two within [64, 16384]", r.AtlasSize)
	}
	if r.AtlasLayers == 0 || r.AtlasLayers > 256 {
		fail("atlas layers %d must be within [1, 256]", r.AtlasLayers)
	}
	if r.AtlasSize > 0 && r.AtlasPadding >= r.AtlasSize/4 {
		fail("atlas padding %d is too large for atlas size %d", r.AtlasPadding, r.AtlasSize)
	}
	if r.ScreenshotWorkers < 1 {
		fail("screenshot workers %d must be at least 1", r.ScreenshotWorkers)
	}
	if r.FrameLimit < 0 {
		fail("frame limit %g must not be negative", r.FrameLimit)
	}
	if r.MaxTexturePixels == 0 {
		fail("max texture pixels must be positive")
	}

	// A buffer must hold at least one quad or the batcher cannot make progress.
	for name, u := range map[string]Usage{
		"vertex":     r.Capacities.Vertex,
		"slider":     r.Capacities.Slider,
		"flashlight": r.Capacities.Flashlight,
	} {
		if u.Vertices < 4 || u.Indices < 6 {
			fail("%s capacity %d vertices, %d indices cannot hold a quad", name, u.Vertices, u.Indices)
		}
	}
	if s := r.Capacities.Slider; s.Objects < 1 || s.Cells < 1 || s.Segments < 1 {
		fail("slider capacity needs objects, cells and segments")
	}
	if r.Capacities.Flashlight.Objects < 1 {
		fail("flashlight capacity needs objects")
	}

	if c.Profiler.Enabled && c.Profiler.Interval <= 0 {
		fail("profiler interval %s must be positive", c.Profiler.Interval)
	}
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		fail("unknown log level %q", c.Log.Level)
	}

	return errors.Join(errs...)
}

// ParsePresentMode maps a present mode name onto a renderer.PresentMode.
//
// Parameters:
//   - name: "vsync", "uncapped" or "mailbox", case insensitive
//
// Returns:
//   - renderer.PresentMode: the present mode
//   - bool: false if the name is unknown
func ParsePresentMode(name string) (renderer.PresentMode, bool) {
	for _, m := range []renderer.PresentMode{renderer.PresentModeVSync, renderer.PresentModeUncapped, renderer.PresentModeMailbox} {
		if strings.EqualFold(strings.TrimSpace(name), m.String()) {
			return m, true
		}
	}
	return renderer.PresentModeVSync, false
}

// LogLevel returns the configured log level.
//
// Returns:
//   - log.Level: the level, LevelNotice if unknown
func (c Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// BatchCapacities converts the configured capacities.
//
// Returns:
//   - batch.Capacities: the per-buffer capacities
func (c Config) BatchCapacities() batch.Capacities {
	caps := c.Renderer.Capacities
	return batch.Capacities{
		Vertex:     caps.Vertex.batch(),
		Slider:     caps.Slider.batch(),
		Flashlight: caps.Flashlight.batch(),
	}
}

// RendererOptions returns the renderer options the configuration describes.
//
// Returns:
//   - []renderer.RendererBuilderOption: the options for renderer.NewRenderer
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, _ := ParsePresentMode(c.Renderer.PresentMode)
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithClearColor(c.Renderer.ClearColor),
		renderer.WithCapacities(c.BatchCapacities()),
		renderer.WithAtlasPadding(c.Renderer.AtlasPadding),
		renderer.WithScreenshotWorkers(c.Renderer.ScreenshotWorkers),
		renderer.WithLoader(loader.NewLoader(loader.WithMaxPixels(c.Renderer.MaxTexturePixels))),
	}
}

// WindowOptions returns the window options the configuration describes.
//
// Returns:
//   - []window.WindowBuilderOption: the options for window.NewWindow
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithWidth(c.Window.Width),
		window.WithHeight(c.Window.Height),
		window.WithResizable(c.Window.Resizable),
		window.WithMaxWidth(c.Window.MaxWidth),
		window.WithMaxHeight(c.Window.MaxHeight),
	}
}

// BackendOptions returns the GPU backend options the configuration describes.
//
// Returns:
//   - []gpu.BackendOption: the options for gpu.New
func (c Config) BackendOptions() []gpu.BackendOption {
	return []gpu.BackendOption{
		gpu.WithAtlas(c.Renderer.AtlasSize, c.Renderer.AtlasLayers),
		gpu.WithFallbackAdapter(c.Renderer.FallbackAdapter),
	}
}

// HeadlessOptions returns the headless backend options the configuration describes.
//
// Returns:
//   - []renderer.HeadlessOption: the options for renderer.NewHeadlessBackend
func (c Config) HeadlessOptions() []renderer.HeadlessOption {
	return []renderer.HeadlessOption{
		renderer.WithHeadlessAtlas(c.Renderer.AtlasSize, c.Renderer.AtlasLayers),
	}
}

func usageFrom(u batch.Usage) Usage {
	return Usage{
		Vertices: u.Vertices,
		Indices:  u.Indices,
		Objects:  u.Objects,
		Cells:    u.Cells,
		Segments: u.Segments,
	}
}

func (u Usage) batch() batch.Usage {
	return batch.Usage{
		Vertices: u.Vertices,
		Indices:  u.Indices,
		Objects:  u.Objects,
		Cells:    u.Cells,
		Segments: u.Segments,
	}
}
