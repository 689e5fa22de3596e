package common

import (
	"unsafe"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Orthographic builds a column-major orthographic projection mapping the given pixel box to
// WebGPU clip space (x, y in [-1, 1], z in [0, 1]). Passing top < bottom gives a y-down
// pixel space with the origin in the top-left corner.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right: the x range mapped to -1 and 1
//   - bottom, top: the y range mapped to -1 and 1
//   - near, far: the z range mapped to 0 and 1
func Orthographic(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)
	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (far - near)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = -near / (far - near)
}

// ScreenProjection returns the y-down pixel projection for a target of the given size.
//
// Parameters:
//   - width, height: the target size in pixels
//
// Returns:
//   - [16]float32: the column-major projection matrix
func ScreenProjection(width, height uint32) [16]float32 {
	var m [16]float32
	Orthographic(m[:], 0, float32(width), float32(height), 0, -1, 1)
	return m
}

// AlignUp rounds v up to the next multiple of align. align must be a power of two.
func AlignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// Stride returns the size in bytes of one T, used for partial buffer uploads.
func Stride[T any]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}
