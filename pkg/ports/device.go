package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDevice marks failures reported by a Device.
var ErrDevice = errors.New("device error")

// DeviceError wraps a transport or backend failure of one device operation.
type DeviceError struct {
	Op  string // Operation name, e.g. "click" or "dump"
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrDevice and the underlying cause.
func (e *DeviceError) Unwrap() []error { return []error{ErrDevice, e.Err} }

// Device is the live automation target a scenario runs against.
// Every call blocks until the device acknowledges it or fails.
// Implementations are not required to support concurrent runs.
type Device interface {
	// Click taps a screen coordinate. A positive duration performs a long press.
	Click(ctx context.Context, x, y float64, duration time.Duration) error
	// ClickText taps the first element whose text matches.
	ClickText(ctx context.Context, text string, duration time.Duration) error
	// TypeText enters text into the focused element.
	TypeText(ctx context.Context, text string) error
	// LaunchApp starts an installed application.
	LaunchApp(ctx context.Context, packageName string) error
	// DumpHierarchy returns the current UI hierarchy as an XML document.
	DumpHierarchy(ctx context.Context) ([]byte, error)
}
