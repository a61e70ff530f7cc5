package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/roboflow/internal/logging"
	"github.com/aretw0/roboflow/pkg/ports"
)

// ErrElementNotFound is returned by ClickText when no node shows the text.
var ErrElementNotFound = errors.New("element not found")

// Device implements ports.Device over the adb command line.
type Device struct {
	cfg    Config
	cmd    Commander
	logger *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithCommander replaces the process runner, for tests and remote shells.
func WithCommander(c Commander) Option {
	return func(d *Device) {
		d.cmd = c
	}
}

// WithLogger sets the logger used for adb invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

// New creates a Device. Empty config fields take their defaults.
func New(cfg Config, opts ...Option) *Device {
	d := &Device{
		cfg:    cfg.withDefaults(),
		cmd:    ExecCommander{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serial returns the configured device serial.
func (d *Device) Serial() string { return d.cfg.Serial }

func (d *Device) adb(ctx context.Context, op string, args ...string) ([]byte, error) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	if d.cfg.Serial != "" {
		args = append([]string{"-s", d.cfg.Serial}, args...)
	}
	d.logger.Debug("adb", "op", op, "args", args)

	out, err := d.cmd.Run(ctx, d.cfg.ADBPath, args...)
	if err != nil {
		return nil, &ports.DeviceError{Op: op, Err: err}
	}
	return out, nil
}

func (d *Device) Click(ctx context.Context, x, y float64, duration time.Duration) error {
	px, py := coord(x), coord(y)
	if duration <= 0 {
		_, err := d.adb(ctx, "click", "shell", "input", "tap", px, py)
		return err
	}
	ms := strconv.FormatInt(duration.Milliseconds(), 10)
	_, err := d.adb(ctx, "click", "shell", "input", "swipe", px, py, px, py, ms)
	return err
}

// ClickText dumps the hierarchy and clicks the centre of the first node whose text matches.
func (d *Device) ClickText(ctx context.Context, text string, duration time.Duration) error {
	dump, err := d.DumpHierarchy(ctx)
	if err != nil {
		return err
	}
	x, y, err := FindText(dump, text)
	if err != nil {
		return &ports.DeviceError{Op: "click_text", Err: err}
	}
	return d.Click(ctx, x, y, duration)
}

// TypeText types text into the focused field. Control characters are dropped.
func (d *Device) TypeText(ctx context.Context, text string) error {
	clean, err := SanitizeInput(text, d.cfg.MaxInputSize)
	if err != nil {
		return &ports.DeviceError{Op: "type_text", Err: err}
	}
	for _, chunk := range splitInput(clean) {
		if _, err := d.adb(ctx, "type_text", "shell", "input", "text", EscapeInput(chunk)); err != nil {
			return err
		}
	}
	return nil
}

// splitInput cuts text between every "%" and a following "s" so no chunk
// carries the sequence `input text` expands to a space.
func splitInput(text string) []string {
	var chunks []string
	for {
		i := strings.Index(text, "%s")
		if i < 0 {
			break
		}
		chunks = append(chunks, text[:i+1])
		text = text[i+1:]
	}
	return append(chunks, text)
}

var packageName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)

// LaunchApp starts the launcher activity of an installed package.
// Names outside the Android package grammar are rejected before adb runs.
func (d *Device) LaunchApp(ctx context.Context, pkg string) error {
	if !packageName.MatchString(pkg) {
		return &ports.DeviceError{Op: "launch_app", Err: fmt.Errorf("invalid package name %q", pkg)}
	}
	_, err := d.adb(ctx, "launch_app", "shell", "monkey",
		"-p", pkg,
		"-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// DumpHierarchy runs uiautomator on the device and reads the dump back.
func (d *Device) DumpHierarchy(ctx context.Context) ([]byte, error) {
	if _, err := d.adb(ctx, "dump", "shell", "uiautomator", "dump", d.cfg.DumpPath); err != nil {
		return nil, err
	}
	out, err := d.adb(ctx, "dump", "exec-out", "cat", d.cfg.DumpPath)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, &ports.DeviceError{Op: "dump", Err: errors.New("empty hierarchy dump")}
	}
	return out, nil
}

// Devices lists the serials of attached devices in the "device" state.
func Devices(ctx context.Context, c Commander, adbPath string) ([]string, error) {
	if adbPath == "" {
		adbPath = "adb"
	}
	out, err := c.Run(ctx, adbPath, "devices")
	if err != nil {
		return nil, &ports.DeviceError{Op: "devices", Err: err}
	}
	var serials []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// EscapeInput encodes text for `adb shell input text`: spaces become %s and
// shell metacharacters, % included, are backslash-escaped. The device still reads
// a literal "%s" as a space, so callers split on it first (see splitInput).
func EscapeInput(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == ' ':
			b.WriteString("%s")
		case strings.ContainsRune(`\"'()<>|;&*~$!?#%`+"`", r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (d *Device) String() string {
	if d.cfg.Serial == "" {
		return "adb"
	}
	return fmt.Sprintf("adb:%s", d.cfg.Serial)
}
