package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused signals that an operator has halted the named module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module's mutating flows are currently halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view means no pause
// control is wired and every call proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
