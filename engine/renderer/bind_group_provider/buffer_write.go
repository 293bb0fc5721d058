package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
)

// BufferWrite describes a single GPU buffer write operation targeting a named buffer
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Name     string
	Offset   uint64
	Data     []byte
}

// Flush performs every write in order. A failed write does not stop the others.
//
// Parameters:
//   - dev: the device the buffers live on
//   - writes: the writes to perform
//
// Returns:
//   - error: the joined errors of every failed write
func Flush(dev device.Device, writes []BufferWrite) error {
	var errs []error
	for _, w := range writes {
		h, ok := w.Provider.Buffer(w.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no buffer %q", w.Provider.Label(), w.Name))
			continue
		}
		if err := dev.WriteBuffer(h, w.Offset, w.Data); err != nil {
			errs = append(errs, fmt.Errorf("%s: write %q: %w", w.Provider.Label(), w.Name, err))
		}
	}
	return errors.Join(errs...)
}
