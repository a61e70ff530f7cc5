package adb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/ports"
)

const hierarchy = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" class="android.widget.FrameLayout" bounds="[0,0][1080,2340]">
    <node index="0" text="Settings" class="android.widget.TextView" bounds="[100,200][300,260]"/>
    <node index="1" text="Settings" class="android.widget.TextView" bounds="[0,0][10,10]"/>
  </node>
</hierarchy>`

// fakeCommander records invocations and answers `cat` with a canned dump.
type fakeCommander struct {
	calls []string
	dump  string
	fail  map[string]error
}

func (f *fakeCommander) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, line)
	for sub, err := range f.fail {
		if strings.Contains(line, sub) {
			return nil, err
		}
	}
	if strings.Contains(line, "exec-out cat") {
		return []byte(f.dump), nil
	}
	return nil, nil
}

func TestDevice_Commands(t *testing.T) {
	fc := &fakeCommander{dump: hierarchy}
	d := New(Config{Serial: "emulator-5554"}, WithCommander(fc))
	ctx := context.Background()

	require.NoError(t, d.Click(ctx, 10.4, 20.6, 0))
	require.NoError(t, d.Click(ctx, 10, 20, 750*time.Millisecond))
	require.NoError(t, d.TypeText(ctx, "hi there"))
	require.NoError(t, d.LaunchApp(ctx, "com.android.settings"))

	dump, err := d.DumpHierarchy(ctx)
	require.NoError(t, err)
	assert.Equal(t, hierarchy, string(dump))

	assert.Equal(t, []string{
		"adb -s emulator-5554 shell input tap 10 21",
		"adb -s emulator-5554 shell input swipe 10 20 10 20 750",
		"adb -s emulator-5554 shell input text hi%sthere",
		"adb -s emulator-5554 shell monkey -p com.android.settings -c android.intent.category.LAUNCHER 1",
		"adb -s emulator-5554 shell uiautomator dump /sdcard/window_dump.xml",
		"adb -s emulator-5554 exec-out cat /sdcard/window_dump.xml",
	}, fc.calls)
	assert.Equal(t, "adb:emulator-5554", d.String())
}

func TestDevice_ClickText(t *testing.T) {
	fc := &fakeCommander{dump: hierarchy}
	d := New(Config{ADBPath: "/opt/adb"}, WithCommander(fc))

	require.NoError(t, d.ClickText(context.Background(), "Settings", 0))
	assert.Equal(t, "/opt/adb shell input tap 200 230", fc.calls[len(fc.calls)-1])

	err := d.ClickText(context.Background(), "Wi-Fi", 0)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.ErrorIs(t, err, ports.ErrDevice)
}

func TestDevice_Errors(t *testing.T) {
	offline := errors.New("device offline")
	fc := &fakeCommander{fail: map[string]error{"input tap": offline}}
	d := New(Config{}, WithCommander(fc))

	err := d.Click(context.Background(), 1, 1, 0)
	assert.ErrorIs(t, err, ports.ErrDevice)
	assert.ErrorIs(t, err, offline)

	var de *ports.DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "click", de.Op)

	_, err = d.DumpHierarchy(context.Background())
	assert.ErrorContains(t, err, "empty hierarchy dump")
}

func TestDevice_LaunchAppRejectsBadPackage(t *testing.T) {
	fc := &fakeCommander{}
	d := New(Config{}, WithCommander(fc))

	for _, pkg := range []string{"", "x; rm -rf /sdcard", "com.example && reboot", "com..example", "1com.example", "com.example.", "$(id)"} {
		err := d.LaunchApp(context.Background(), pkg)
		var de *ports.DeviceError
		require.ErrorAs(t, err, &de, "package %q", pkg)
		assert.Equal(t, "launch_app", de.Op)
	}
	assert.Empty(t, fc.calls, "adb must not run for rejected names")

	require.NoError(t, d.LaunchApp(context.Background(), "com.example_app.v2"))
	assert.Len(t, fc.calls, 1)
}

func TestDevices(t *testing.T) {
	fc := &stubOutput{out: "List of devices attached\nemulator-5554\tdevice\nR58M123\tunauthorized\n0123abcd\tdevice\n\n"}
	serials, err := Devices(context.Background(), fc, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator-5554", "0123abcd"}, serials)
}

type stubOutput struct{ out string }

func (s *stubOutput) Run(context.Context, string, ...string) ([]byte, error) {
	return []byte(s.out), nil
}

func TestEscapeInput(t *testing.T) {
	assert.Equal(t, `a%sb\&c\'d`, EscapeInput("a b&c'd"))
	assert.Equal(t, "plain", EscapeInput("plain"))
	assert.Equal(t, `100\%`, EscapeInput("100%"))
	assert.Equal(t, `50\%%soff`, EscapeInput("50% off"))
}

func TestDevice_TypeTextPercent(t *testing.T) {
	fc := &fakeCommander{}
	d := New(Config{}, WithCommander(fc))

	require.NoError(t, d.TypeText(context.Background(), "100%"))
	require.NoError(t, d.TypeText(context.Background(), "fmt %s and %%s"))
	assert.Equal(t, []string{
		`adb shell input text 100\%`,
		`adb shell input text fmt%s\%`,
		`adb shell input text s%sand%s\%\%`,
		`adb shell input text s`,
	}, fc.calls)
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("[40,2000][1040,2150]")
	require.NoError(t, err)
	x, y := b.Center()
	assert.Equal(t, 540.0, x)
	assert.Equal(t, 2075.0, y)

	_, err = ParseBounds("40,2000,1040,2150")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial: emulator-5556\ntimeout: 5s\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "emulator-5556", cfg.Serial)
	assert.Equal(t, "adb", cfg.ADBPath)
	assert.Equal(t, DefaultDumpPath, cfg.DumpPath)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	jsonPath := filepath.Join(dir, "device.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"adb_path": "/usr/bin/adb"}`), 0o644))
	cfg, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/adb", cfg.ADBPath)

	require.NoError(t, os.WriteFile(path, []byte("serial: [unclosed"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
