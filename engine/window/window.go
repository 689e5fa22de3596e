package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy2d/common"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized. A minimized window
	// reports 0x0.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(key common.Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(key common.Key))

	// SetMouseButtonCallback sets the callback for mouse button presses and releases.
	//
	// Parameters:
	//   - callback: function receiving the button, whether it went down and the cursor position in pixels
	SetMouseButtonCallback(callback func(button common.MouseButton, down bool, x, y float32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	SetMouseMoveCallback(callback func(x, y float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration.
	RequestClose()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	title string

	// Size limits applied to user resizing. Zero leaves a side unconstrained.
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	resizable bool

	// width and height are the framebuffer size in pixels.
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(key common.Key)
	onKeyUp       func(key common.Key)
	onMouseButton func(button common.MouseButton, down bool, x, y float32)
	onMouseMove   func(x, y float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy2d",
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width = max(w.width, w.minWidth)
	w.height = max(w.height, w.minHeight)
	if w.maxWidth > 0 {
		w.width = min(w.width, w.maxWidth)
	}
	if w.maxHeight > 0 {
		w.height = min(w.height, w.maxHeight)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key common.Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key common.Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button common.MouseButton, down bool, x, y float32)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
