package common

// Key is a virtual key code. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeySpace Key = 32
	KeyA     Key = 65
	KeyC     Key = 67
	KeyF     Key = 70
	KeyP     Key = 80
	KeyR     Key = 82
	KeyS     Key = 83
	KeyV     Key = 86

	Key1 Key = 49
	Key2 Key = 50
	Key3 Key = 51

	KeyEsc       Key = 256
	KeyBackspace Key = 259
	KeyLeftShift Key = 340
)

// MouseButton identifies a mouse button. Values match GLFW.
type MouseButton uint8

const (
	MouseLeft   MouseButton = 0
	MouseRight  MouseButton = 1
	MouseMiddle MouseButton = 2
)
