package render_resource

import (
	"errors"
	"fmt"
)

// ErrAssetNotReady marks a deferral: an entity references an asset that has not finished loading.
// It is never reported as a failure; the entity is retried on the next frame.
var ErrAssetNotReady = errors.New("asset not ready")

// ErrDuplicateBindingSlot is wrapped by every *DuplicateSlotError.
var ErrDuplicateBindingSlot = errors.New("duplicate binding slot")

// DuplicateSlotError reports two bindings that target the same slot in one binding set.
type DuplicateSlotError struct {
	Slot   Slot
	First  ResourceBinding
	Second ResourceBinding
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("%s: %s bound as %s and %s", ErrDuplicateBindingSlot, e.Slot, e.First.Kind, e.Second.Kind)
}

func (e *DuplicateSlotError) Unwrap() error {
	return ErrDuplicateBindingSlot
}
