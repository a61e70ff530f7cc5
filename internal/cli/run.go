package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/roboflow/internal/presentation/tui"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// ErrRunFailed is returned when a run ends without success, so the process can exit non-zero.
var ErrRunFailed = errors.New("run did not succeed")

// RunOptions contains the configuration for the run command.
type RunOptions struct {
	Scenario string
	JSON     bool
	Quiet    bool
	// Renderer formats the markdown report; nil prints it unformatted.
	Renderer tui.Renderer
}

// Execute runs one scenario and writes its report to out.
func Execute(ctx context.Context, stack *Stack, opts RunOptions, out io.Writer) (*domain.Report, error) {
	if opts.Scenario == "" {
		return nil, fmt.Errorf("no scenario selected")
	}
	p, err := stack.Engine.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	sc, ok := p.Scenario(opts.Scenario)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, opts.Scenario)
	}

	if !opts.Quiet && !opts.JSON {
		printSystemMessage(out, "Running '%s' on %s...", sc.Name, stack.Engine.DeviceID())
	}

	report, runErr := stack.Engine.Run(ctx, sc)
	if report == nil {
		return nil, runErr
	}
	if err := WriteReport(out, report, sc, opts); err != nil {
		return report, err
	}

	switch {
	case runErr != nil && isInterrupted(runErr):
		if n := len(report.Trace); n > 0 && !opts.Quiet && !opts.JSON {
			printSystemMessage(out, "Interrupted at state %d.", report.Trace[n-1])
		}
		return report, runErr
	case runErr != nil:
		return report, runErr
	case report.Outcome != domain.OutcomeSuccess:
		return report, fmt.Errorf("%w: %s", ErrRunFailed, report.Outcome)
	}
	return report, nil
}

// WriteReport prints r as JSON or as a rendered markdown summary.
func WriteReport(out io.Writer, r *domain.Report, sc *scenario.Scenario, opts RunOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if opts.Quiet {
		return nil
	}
	render := opts.Renderer
	if render == nil {
		render = tui.PlainRenderer
	}
	text, err := render(tui.ReportMarkdown(r, sc))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}
