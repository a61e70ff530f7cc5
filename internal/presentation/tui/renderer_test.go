package tui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/scenario"
)

func TestReportMarkdown(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &domain.Report{
		RunID:      "run-1",
		Scenario:   "login",
		DeviceID:   "adb:emulator-5554",
		Trace:      []int{0, 1},
		Steps:      2,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	r.Finish(domain.OutcomeSuccess)
	r.FinishedAt = start.Add(1500 * time.Millisecond)

	sc := &scenario.Scenario{
		Name:   "login",
		States: []scenario.State{scenario.NewState(0, "launch"), scenario.NewState(1, "inbox")},
	}

	md := ReportMarkdown(r, sc)
	assert.Contains(t, md, "# login")
	assert.Contains(t, md, "| Outcome | **success** |")
	assert.Contains(t, md, "| Duration | 1.5s |")
	assert.Contains(t, md, "1. `0` launch")
	assert.Contains(t, md, "2. `1` inbox")
	assert.NotContains(t, md, "| Error |")
}

func TestReportMarkdown_Error(t *testing.T) {
	r := domain.NewReport("login")
	r.Visit(0)
	r.Fail(domain.ErrorKindDevice, errors.New("a|b"))

	md := ReportMarkdown(r, nil)
	assert.Contains(t, md, "| Error | device: a\\|b |")
	assert.Contains(t, md, "1. `0`\n")
}

func TestPlainRenderer(t *testing.T) {
	out, err := PlainRenderer("# x")
	require.NoError(t, err)
	assert.Equal(t, "# x", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
