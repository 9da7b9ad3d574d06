// Command graphrun is the engine's CLI surface (spec §6: "a
// collaborator, not core"): it compiles a manifest, loads an initial
// state, and invokes or streams the resulting graph — optionally
// resuming from a snapshot or checkpointing as it goes. Grounded on the
// teacher's cmd/server entrypoint style (env-driven logging, graceful
// shutdown on SIGINT), restructured around spf13/cobra since the
// teacher's go.mod already carries it as an unused dependency.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/checkpoint/memory"
	"github.com/duragraph/graphrt/config"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/hil"
	"github.com/duragraph/graphrt/obslog"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/registry"
	"github.com/duragraph/graphrt/registry/examples"
	"github.com/duragraph/graphrt/resilience"
)

// Exit codes (spec §6): 0 success; 2 validation; 3 runtime; 4
// aborted-by-user; 5 deadlock; 6 timeout.
const (
	exitOK         = 0
	exitValidation = 2
	exitRuntime    = 3
	exitAborted    = 4
	exitDeadlock   = 5
	exitTimeout    = 6
)

type flags struct {
	checkpointID   string
	resumePath     string
	stream         bool
	maxConcurrency int
	timeout        time.Duration
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:   "graphrun <manifest.json> [state.json]",
		Short: "Compile and execute a graph manifest",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath := ""
			if len(args) == 2 {
				statePath = args[1]
			}
			return run(cmd.Context(), args[0], statePath, f)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&f.checkpointID, "checkpoint", "", "thread id to checkpoint under as the run progresses")
	root.Flags().StringVar(&f.resumePath, "resume", "", "path to a workflow snapshot JSON to resume from")
	root.Flags().BoolVar(&f.stream, "stream", false, "stream per-node state updates to stdout instead of printing the final state once")
	root.Flags().IntVar(&f.maxConcurrency, "max-concurrency", 16, "scheduler/bulkhead concurrency cap")
	root.Flags().DurationVar(&f.timeout, "timeout", 0, "overall execution deadline (0 disables)")

	code := exitOK
	if err := root.Execute(); err != nil {
		code = exitCode(err)
		fmt.Fprintln(os.Stderr, "graphrun:", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, manifestPath, statePath string, f flags) error {
	logger := obslog.New(os.Getenv("LOG_LEVEL"))

	m, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}
	cg, err := m.build()
	if err != nil {
		return err
	}

	initial, err := loadState(statePath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if f.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, f.timeout)
		defer timeoutCancel()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			logger.Warn("interrupt received, aborting run")
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := registry.New()
	reg.Register("echo", examples.Echo)
	reg.Register("delay", examples.Delay)
	reg.Register("counter", examples.Counter)

	rcfg := resilience.DefaultConfig(f.maxConcurrency)
	mgr := resilience.NewManager(cg.Name, rcfg)

	ecfg := config.EngineConfig{
		MaxConcurrency:    f.maxConcurrency,
		DeadlockTimeout:   30 * time.Second,
		StreamBufferSize:  32,
		MaxRecursionDepth: 10,
	}
	eng := engine.New(reg, mgr, ecfg, false)

	switch {
	case f.resumePath != "":
		return runResume(ctx, eng, cg, f.resumePath)
	case f.stream:
		return runStream(ctx, eng, cg, initial)
	case f.checkpointID != "":
		return runCheckpointed(ctx, eng, cg, initial, memory.New(), f.checkpointID)
	default:
		return runInvoke(ctx, eng, cg, initial)
	}
}

func runInvoke(ctx context.Context, eng *engine.Engine, cg *graph.CompiledGraph, initial map[string]any) error {
	final, err := eng.Invoke(ctx, cg, initial)
	if err != nil {
		return err
	}
	return printState(final)
}

func runStream(ctx context.Context, eng *engine.Engine, cg *graph.CompiledGraph, initial map[string]any) error {
	for update := range eng.Stream(ctx, cg, initial) {
		if !update.Final {
			fmt.Fprintf(os.Stdout, "node=%s\n", update.NodeID)
			continue
		}
		if update.Err != nil {
			return update.Err
		}
		return printState(update.State)
	}
	return nil
}

func runCheckpointed(ctx context.Context, eng *engine.Engine, cg *graph.CompiledGraph, initial map[string]any, cp checkpoint.Checkpointer, threadID string) error {
	final, checkpointID, err := eng.ExecuteWithCheckpointing(ctx, cg, initial, cp, threadID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "checkpoint: %s\n", checkpointID)
	return printState(final)
}

func runResume(ctx context.Context, eng *engine.Engine, cg *graph.CompiledGraph, snapshotPath string) error {
	doc, err := loadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	snap := hil.WorkflowSnapshot{
		ExecutionID:       doc.ExecutionID,
		GraphName:         doc.GraphName,
		LastCompletedNode: doc.LastCompletedNode,
		NextNode:          doc.NextNode,
		State:             doc.State,
	}
	final, err := eng.ResumeFrom(ctx, cg, snap, nil)
	if err != nil {
		return err
	}
	return printState(final)
}

func printState(final map[string]any) error {
	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func exitCode(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return exitTimeout
	}
	if errors.Is(err, context.Canceled) {
		return exitAborted
	}
	var rerr *pkgerrors.RuntimeError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case pkgerrors.KindValidation:
			return exitValidation
		case pkgerrors.KindDeadlock:
			return exitDeadlock
		case pkgerrors.KindAborted:
			return exitAborted
		}
	}
	return exitRuntime
}
