package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/browser/sandbox"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
)

const maxEventLine = 64 * 1024

func newReplayCmd(flags *globalFlags) *cobra.Command {
	var (
		interval   time.Duration
		settle     time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Drive the pipeline from a recorded event log against simulated pages",
		Long: `Replay reads one host event per line, for example

  {"event":"navigate","context":"tab-1","url":"https://www.example.com/"}
  {"event":"readiness","context":"tab-1","readiness":"interactive"}

and feeds each event to simulated pages and the injection pipeline. The
matcher is queried for real. Use "-" to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEventFile(args[0])
			if err != nil {
				return err
			}
			c, err := newCore(flags)
			if err != nil {
				return err
			}
			defer c.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report := replay(ctx, c, events, interval, settle)
			return printReport(cmd.OutOrStdout(), report, jsonOutput)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "pause between events")
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "wait after the last event for deliveries to finish")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")

	return cmd
}

// replayReport is the outcome of one replay run
type replayReport struct {
	Events     int                        `json:"events"`
	Pages      []sandbox.PageSummary      `json:"pages"`
	Deliveries []navigation.Delivery      `json:"deliveries"`
	Outcomes   map[navigation.Outcome]int `json:"outcomes"`
}

func readEventFile(path string) ([]navigation.Event, error) {
	if path == "-" {
		return readEvents(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()
	return readEvents(f)
}

// readEvents parses a JSON-lines event log. Blank lines and lines starting
// with # are skipped.
func readEvents(r io.Reader) ([]navigation.Event, error) {
	var events []navigation.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventLine)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev navigation.Event
		if err := sonic.UnmarshalString(text, &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return events, nil
}

func replay(ctx context.Context, c *core, events []navigation.Event, interval, settle time.Duration) replayReport {
	logger := c.logger.Logger
	pages := sandbox.New(sandbox.DefaultConfig(), logger)

	var (
		mu         sync.Mutex
		deliveries []navigation.Delivery
	)
	hub := navigation.NewHub(pages, pages, c.matcher, c.scheduler,
		navigation.WithLogger(logger),
		navigation.WithMetrics(c.metrics),
		navigation.WithReporter(navigation.ReporterFunc(func(d navigation.Delivery) {
			mu.Lock()
			deliveries = append(deliveries, d)
			mu.Unlock()
		})),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- hub.Run(runCtx) }()

	logger.Info("Replaying events", zap.Int("events", len(events)))
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		pages.Apply(ev)
		hub.Dispatch(ev)
		if interval > 0 {
			sleep(ctx, interval)
		}
	}
	sleep(ctx, settle)

	cancel()
	if err := <-done; err != nil {
		logger.Warn("Hub stopped with error", zap.Error(err))
	}

	mu.Lock()
	defer mu.Unlock()
	report := replayReport{
		Events:     len(events),
		Pages:      pages.Summary(),
		Deliveries: deliveries,
		Outcomes:   make(map[navigation.Outcome]int),
	}
	for _, d := range deliveries {
		report.Outcomes[d.Type]++
	}
	return report
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func printReport(w io.Writer, report replayReport, jsonOutput bool) error {
	if jsonOutput {
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "%d events replayed\n", report.Events)
	for _, p := range report.Pages {
		fmt.Fprintf(w, "\n%s  %s  [%s]\n", p.ID, p.URL, p.Readiness)
		if len(p.Scripts) == 0 {
			fmt.Fprintln(w, "  no scripts")
		}
		for _, s := range p.Scripts {
			fmt.Fprintf(w, "  %s\n", s)
		}
		for _, l := range p.Console {
			fmt.Fprintf(w, "  console.%s: %s\n", l.Level, l.Message)
		}
	}

	outcomes := make([]string, 0, len(report.Outcomes))
	for o := range report.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	fmt.Fprintln(w)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s: %d\n", o, report.Outcomes[navigation.Outcome(o)])
	}
	return nil
}
