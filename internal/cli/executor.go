package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"sitebuild/internal/checksum"
	"sitebuild/internal/compile"
	"sitebuild/internal/compiler"
	"sitebuild/internal/config"
	"sitebuild/internal/ctxlog"
	"sitebuild/internal/events"
	"sitebuild/internal/filters"
	"sitebuild/internal/recovery/state"
	"sitebuild/internal/site"
	"sitebuild/internal/store"
	"sitebuild/internal/trace"
)

// keepRuns is how many run records survive each compile.
const keepRuns = 10

type CLIResult struct {
	ExitCode int
	Compile  *compiler.Result
	Outdated []compiler.OutdatedRep
}

// Streams are where the CLI writes. Out gets command output, Err gets
// logs.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// environment is everything a command needs once the configuration and
// the site are loaded.
type environment struct {
	cfg      *config.Config
	site     *site.Site
	rules    *site.Rules
	registry *filters.Registry
	logger   *slog.Logger
}

// Execute runs a resolved invocation and maps the outcome to an exit code.
func Execute(ctx context.Context, inv Invocation, streams Streams) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError
	if streams.Out == nil {
		streams.Out = io.Discard
	}
	if streams.Err == nil {
		streams.Err = io.Discard
	}
	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			execErr = fmt.Errorf("panic: %v", r)
		}
	}()

	if inv.Command == CommandHelp {
		_, err := io.WriteString(streams.Out, inv.Help)
		res.ExitCode = ExitSuccess
		return res, err
	}

	env, err := load(ctx, inv, streams.Err)
	if err != nil {
		res.ExitCode = ExitConfigError
		if ctx.Err() != nil {
			res.ExitCode = ExitInternalError
		}
		return res, err
	}
	ctx = ctxlog.WithLogger(ctx, env.logger)

	switch inv.Command {
	case CommandCompile:
		return runCompile(ctx, inv, env, streams.Out)
	case CommandOutdated:
		return runOutdated(ctx, inv, env, streams.Out)
	default:
		res.ExitCode = ExitInvalidInvocation
		return res, invalidInvocationf("unknown command %q", inv.Command)
	}
}

func load(ctx context.Context, inv Invocation, logOut io.Writer) (*environment, error) {
	cfg, err := config.Load(inv.ConfigPath)
	if err != nil {
		return nil, err
	}
	if inv.OutputDir != "" {
		cfg.OutputDir = inv.OutputDir
	}
	if inv.LogLevel != "" {
		cfg.LogLevel = inv.LogLevel
	}
	if inv.LogFormat != "" {
		cfg.LogFormat = inv.LogFormat
	}
	logger := ctxlog.NewLogger(cfg.LogLevel, cfg.LogFormat, logOut)

	registry, err := filters.NewBuiltinRegistry()
	if err != nil {
		return nil, err
	}
	s, err := site.Load(ctxlog.WithLogger(ctx, logger), cfg, site.NewRegistry())
	if err != nil {
		return nil, err
	}
	return &environment{
		cfg:      cfg,
		site:     s,
		rules:    site.NewRules(cfg.Rules, cfg.LayoutRules, registry),
		registry: registry,
		logger:   logger,
	}, nil
}

func newCompiler(inv Invocation, env *environment, runID string, sink events.Sink) *compiler.Compiler {
	return compiler.New(env.site, env.rules, env.registry, compiler.Options{
		SiteDir:         inv.SiteDir,
		OutputDir:       env.cfg.AbsOutputDir(),
		IndexFilenames:  env.cfg.IndexFilenames,
		ChecksumVerbose: env.cfg.ChecksumVerbose,
		RunID:           runID,
		Sink:            sink,
	})
}

func runCompile(ctx context.Context, inv Invocation, env *environment, out io.Writer) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}
	log := ctxlog.FromContext(ctx)

	st, err := state.NewStore(store.PathFor(inv.SiteDir, env.cfg.AbsOutputDir(), "runs"))
	if err != nil {
		return res, err
	}
	rec := &state.Recorder{Store: st, Keep: keepRuns}
	siteChecksum := checksum.Calc(env.site.Config)

	if resume, err := state.CheckResume(st, siteChecksum); err != nil {
		log.Warn("cannot read previous run", "error", err)
	} else if resume != nil {
		log.Info("resuming after failed run",
			"previous_run_id", resume.PreviousRunID,
			"error_code", resume.Failure.ErrorCode,
			"site_changed", resume.SiteChanged)
	}

	run, err := rec.StartRun(state.Run{RunID: uuid.NewString(), SiteChecksum: siteChecksum})
	if err != nil {
		return res, fmt.Errorf("record run: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics, err := events.NewMetricsSink(registry)
	if err != nil {
		return res, err
	}
	collector := trace.NewCollector()
	sink := events.Multi{events.LogSink{Logger: log}, metrics, collector}

	result, compileErr := newCompiler(inv, env, run.RunID, sink).Run(ctx)
	res.Compile = &result
	run.Outdated = len(result.Outdated)
	run.Modified = len(result.Modified)
	if _, err := rec.FinishRun(run, compileErr); err != nil {
		log.Warn("cannot record run", "run_id", run.RunID, "error", err)
	}

	if inv.TracePath != "" {
		if err := trace.WriteFile(inv.TracePath, collector.Trace(siteChecksum)); err != nil {
			log.Warn("cannot write trace", "path", inv.TracePath, "error", err)
		}
	}
	if inv.MetricsPath != "" {
		if err := writeMetrics(inv.MetricsPath, registry); err != nil {
			log.Warn("cannot write metrics", "path", inv.MetricsPath, "error", err)
		}
	}

	if compileErr != nil {
		res.ExitCode = compileExitCode(compileErr)
		return res, compileErr
	}
	fmt.Fprintf(out, "compiled %d of %d item reps, %d files changed in %s\n",
		len(result.Outdated), len(result.Reps), len(result.Modified), result.Duration.Round(time.Millisecond))
	res.ExitCode = ExitSuccess
	return res, nil
}

func runOutdated(ctx context.Context, inv Invocation, env *environment, out io.Writer) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}
	report, err := newCompiler(inv, env, "", events.LogSink{Logger: ctxlog.FromContext(ctx)}).Outdated(ctx)
	if err != nil {
		res.ExitCode = compileExitCode(err)
		return res, err
	}
	res.Outdated = report
	sort.Slice(report, func(i, j int) bool {
		return report[i].Rep.Reference().String() < report[j].Rep.Reference().String()
	})

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, o := range report {
		reasons := make([]string, len(o.Reasons))
		for i, r := range o.Reasons {
			reasons[i] = r.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Rep.Item().Identifier(), o.Rep.Name(), strings.Join(reasons, ","))
	}
	if err := tw.Flush(); err != nil {
		return res, err
	}
	res.ExitCode = ExitSuccess
	return res, nil
}

// compileExitCode maps site and compilation errors to ExitCompileFailure
// and everything else (store I/O, interruptions) to ExitInternalError.
func compileExitCode(err error) int {
	var (
		compErr  *compile.CompilationError
		cycleErr *compile.DependencyCycleError
		dupErr   *compile.DuplicateOutputPathError
		ruleErr  *site.NoMatchingRuleError
	)
	switch {
	case errors.As(err, &compErr), errors.As(err, &cycleErr), errors.As(err, &dupErr),
		errors.As(err, &ruleErr), errors.Is(err, compile.ErrInvalidRoute):
		return ExitCompileFailure
	default:
		return ExitInternalError
	}
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return err
		}
	}
	return store.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
