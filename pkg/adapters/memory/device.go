package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoSnapshot is returned by Device.DumpHierarchy when no snapshot was scripted.
var ErrNoSnapshot = errors.New("no snapshot scripted")

// Call records one operation received by a Device.
type Call struct {
	Op       string
	X, Y     float64
	Text     string
	Duration time.Duration
}

func (c Call) String() string {
	switch c.Op {
	case "click":
		return fmt.Sprintf("click(%g,%g,%s)", c.X, c.Y, c.Duration)
	case "click_text":
		return fmt.Sprintf("click_text(%q,%s)", c.Text, c.Duration)
	case "type_text", "launch_app":
		return fmt.Sprintf("%s(%q)", c.Op, c.Text)
	default:
		return c.Op + "()"
	}
}

// Device is a scripted ports.Device for tests and dry runs.
// Snapshots are returned in order; the last one repeats once the script is exhausted.
// Safe for concurrent use.
type Device struct {
	mu        sync.Mutex
	snapshots [][]byte
	next      int
	calls     []Call
	failures  map[string]error
}

// NewDevice creates a device that returns the given hierarchy dumps.
func NewDevice(snapshots ...string) *Device {
	d := &Device{failures: make(map[string]error)}
	for _, s := range snapshots {
		d.snapshots = append(d.snapshots, []byte(s))
	}
	return d
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (d *Device) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// Calls returns the operations received so far.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Dumps returns how many snapshots were requested.
func (d *Device) Dumps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == "dump" {
			n++
		}
	}
	return n
}

func (d *Device) record(ctx context.Context, c Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	return d.failures[c.Op]
}

func (d *Device) Click(ctx context.Context, x, y float64, duration time.Duration) error {
	return d.record(ctx, Call{Op: "click", X: x, Y: y, Duration: duration})
}

func (d *Device) ClickText(ctx context.Context, text string, duration time.Duration) error {
	return d.record(ctx, Call{Op: "click_text", Text: text, Duration: duration})
}

func (d *Device) TypeText(ctx context.Context, text string) error {
	return d.record(ctx, Call{Op: "type_text", Text: text})
}

func (d *Device) LaunchApp(ctx context.Context, packageName string) error {
	return d.record(ctx, Call{Op: "launch_app", Text: packageName})
}

func (d *Device) DumpHierarchy(ctx context.Context) ([]byte, error) {
	if err := d.record(ctx, Call{Op: "dump"}); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.snapshots) == 0 {
		return nil, ErrNoSnapshot
	}
	i := min(d.next, len(d.snapshots)-1)
	d.next++
	return d.snapshots[i], nil
}
