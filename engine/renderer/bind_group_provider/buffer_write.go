package bind_group_provider

// BufferWrite describes one queue write into the buffer at Binding of Provider. BindingVertex and
// BindingIndex target the vertex and index buffers.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Valid reports whether the write has data and a buffer to land in.
//
// Returns:
//   - bool: false if the provider has no buffer at the binding or the write is empty
func (w BufferWrite) Valid() bool {
	return w.Provider != nil && len(w.Data) > 0 && w.Provider.Buffer(w.Binding) != nil
}
