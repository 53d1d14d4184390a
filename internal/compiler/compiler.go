// Package compiler runs the stages of an incremental build: load the
// stores, build and route reps, find what is outdated, compile it and
// persist the new state.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"sitebuild/internal/actions"
	"sitebuild/internal/checksum"
	"sitebuild/internal/compile"
	"sitebuild/internal/content"
	"sitebuild/internal/core"
	"sitebuild/internal/ctxlog"
	"sitebuild/internal/deps"
	"sitebuild/internal/events"
	"sitebuild/internal/filters"
	"sitebuild/internal/outdatedness"
	"sitebuild/internal/site"
	"sitebuild/internal/store"
)

// Options configures a compiler.
type Options struct {
	// SiteDir is where the stores live, below tmp/sitebuild.
	SiteDir   string
	OutputDir string

	IndexFilenames []string

	// ChecksumVerbose logs the verbose checksum input of outdated items.
	ChecksumVerbose bool

	// RunID names the run in logs and temporary paths. A random one is
	// generated when empty.
	RunID string

	Sink events.Sink
}

// Result summarizes a compilation run.
type Result struct {
	RunID string

	// Reps holds every rep of the site.
	Reps []*core.ItemRep

	// Outdated holds the reps that were scheduled for compilation.
	Outdated []*core.ItemRep

	// Modified holds the raw paths that were written with new content.
	Modified []string

	Duration time.Duration
}

// Compiler compiles one site.
type Compiler struct {
	site     *site.Site
	provider site.ActionProvider
	filters  *filters.Registry
	opts     Options
	sink     events.Sink

	runID string

	reps      *core.ItemRepSet
	sequences *sequences

	checksums     *checksum.Collection
	checksumStore *checksum.Store
	actionStore   *actions.Store
	depStore      *deps.Store
	outdatedStore *outdatedness.Store
	cache         *content.Cache
	contents      *content.Store

	outdatedReps []*core.ItemRep
}

// New returns a compiler for s.
func New(s *site.Site, provider site.ActionProvider, registry *filters.Registry, opts Options) *Compiler {
	sink := opts.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Compiler{site: s, provider: provider, filters: registry, opts: opts, sink: sink}
}

func (c *Compiler) newRunID() string {
	if c.opts.RunID != "" {
		return c.opts.RunID
	}
	return uuid.NewString()
}

func (c *Compiler) storePath(name string) string {
	return store.PathFor(c.opts.SiteDir, c.opts.OutputDir, name)
}

func (c *Compiler) tmpDir() string {
	return filepath.Join(filepath.Dir(c.storePath("x")), "tmp", c.runID)
}

func (c *Compiler) objects() []core.Object {
	var out []core.Object
	for _, it := range c.site.Items.All() {
		out = append(out, it)
	}
	for _, l := range c.site.Layouts.All() {
		out = append(out, l)
	}
	out = append(out, c.site.Config)
	for _, cs := range c.site.CodeSnippets {
		out = append(out, cs)
	}
	return out
}

// Run compiles the site.
func (c *Compiler) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	c.runID = c.newRunID()
	log := ctxlog.FromContext(ctx).With("run_id", c.runID)
	ctx = ctxlog.WithLogger(ctx, log)
	log.Info("compilation started", "items", c.site.Items.Len(), "layouts", c.site.Layouts.Len())

	err := c.prepare(ctx)
	if err == nil {
		err = c.runStages(ctx, []stage{
			{"forget_outdated_dependencies", c.forgetOutdatedDependencies},
			{"store_pre_compilation_state", c.storePreCompilationState},
			{"compile_reps", c.compileReps},
			{"store_post_compilation_state", c.storePostCompilationState},
		})
	}
	err = multierr.Append(err, c.runStage(ctx, stage{"cleanup", c.cleanup}))

	res := Result{RunID: c.runID, Outdated: c.outdatedReps, Duration: time.Since(start)}
	if c.reps != nil {
		res.Reps = c.reps.All()
		for _, rep := range res.Reps {
			if rep.Modified() {
				res.Modified = append(res.Modified, rep.AllRawPaths()...)
			}
		}
	}
	if err != nil {
		log.Error("compilation failed", "error", err, "duration", res.Duration)
		return res, err
	}
	log.Info("compilation finished", "outdated", len(res.Outdated), "modified", len(res.Modified), "duration", res.Duration)
	return res, nil
}

// OutdatedRep is a rep that the next run would compile, with the reasons.
type OutdatedRep struct {
	Rep     *core.ItemRep
	Reasons []outdatedness.Reason
}

// Outdated reports what the next run would compile without compiling or
// persisting anything.
func (c *Compiler) Outdated(ctx context.Context) ([]OutdatedRep, error) {
	c.runID = c.newRunID()
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("run_id", c.runID))
	if err := c.prepare(ctx); err != nil {
		return nil, err
	}
	checker := c.newChecker()
	out := make([]OutdatedRep, 0, len(c.outdatedReps))
	for _, rep := range c.outdatedReps {
		reasons, err := checker.Reasons(rep)
		if err != nil {
			return nil, err
		}
		out = append(out, OutdatedRep{Rep: rep, Reasons: reasons})
	}
	return out, nil
}

func (c *Compiler) prepare(ctx context.Context) error {
	return c.runStages(ctx, []stage{
		{"load_stores", c.loadStores},
		{"build_reps", c.buildReps},
		{"calculate_checksums", c.calculateChecksums},
		{"determine_outdatedness", c.determineOutdatedness},
	})
}

func (c *Compiler) newChecker() *outdatedness.Checker {
	return outdatedness.NewChecker(outdatedness.Input{
		Checksums:     c.checksums,
		ChecksumStore: c.checksumStore,
		Actions:       c.actionStore,
		Sequences:     c.sequences,
		Deps:          c.depStore,
		Reps:          c.reps,
		Layouts:       c.site.Layouts,
		CodeSnippets:  c.site.CodeSnippets,
		Filters:       c.filters,
	})
}

func (c *Compiler) persisted() []store.Persistent {
	return []store.Persistent{c.checksumStore, c.actionStore, c.depStore, c.outdatedStore, c.cache}
}

func (c *Compiler) loadStores(ctx context.Context) error {
	c.checksumStore = checksum.NewStore(c.storePath("checksums"), c.objects())
	c.actionStore = actions.NewStore(c.storePath("rule_memory"))
	c.depStore = deps.NewStore(c.storePath("dependencies"), c.site.Items, c.site.Layouts, c.site.Config)
	c.outdatedStore = outdatedness.NewStore(c.storePath("outdatedness"))
	c.cache = content.NewCache(c.storePath("compiled_content"))

	var err error
	for _, s := range c.persisted() {
		err = multierr.Append(err, c.timeStore(ctx, events.StoreLoaded, s, s.Load))
	}
	return err
}

func (c *Compiler) timeStore(ctx context.Context, kind events.Kind, s store.Persistent, fn func(context.Context) error) error {
	start := time.Now()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", kind, s.Name(), err)
	}
	d := time.Since(start)
	events.SafeEmit(c.sink, events.Event{Kind: kind, Subject: s.Name(), Duration: d})
	ctxlog.FromContext(ctx).Debug(string(kind), "store", s.Name(), "duration", d)
	return nil
}

func (c *Compiler) buildReps(ctx context.Context) error {
	c.reps = core.NewItemRepSet()
	for _, item := range c.site.Items.All() {
		names := c.provider.RepNamesFor(item)
		if len(names) == 0 {
			return &site.NoMatchingRuleError{Rep: item.String()}
		}
		for _, name := range names {
			if err := c.reps.Add(core.NewItemRep(item, name)); err != nil {
				return err
			}
		}
	}
	c.sequences = newSequences(c.provider)
	router := &compile.Router{OutputDir: c.opts.OutputDir, IndexFilenames: c.opts.IndexFilenames}
	return router.Route(c.reps.All(), c.sequences)
}

func (c *Compiler) calculateChecksums(context.Context) error {
	c.checksums = checksum.Compute(c.objects()...)
	return nil
}

// determineOutdatedness marks every rep of an outdated item as outdated.
// Reps left over in the outdated store by an interrupted run stay outdated.
func (c *Compiler) determineOutdatedness(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	checker := c.newChecker()

	outdatedItems := map[core.Reference]bool{}
	for _, rep := range c.reps.All() {
		if outdatedItems[rep.Item().Reference()] {
			continue
		}
		if c.outdatedStore.Include(rep) {
			outdatedItems[rep.Item().Reference()] = true
			log.Debug("rep left over from previous run", "rep", rep.String())
			continue
		}
		outdated, err := checker.Outdated(rep)
		if err != nil {
			return err
		}
		if !outdated {
			continue
		}
		outdatedItems[rep.Item().Reference()] = true
		if log.Enabled(ctx, slogDebug) {
			reasons, err := checker.Reasons(rep)
			if err != nil {
				return err
			}
			log.Debug("rep outdated", "rep", rep.String(), "reasons", reasonNames(reasons))
		}
		if c.opts.ChecksumVerbose {
			log.Debug("verbose checksum", "item", rep.Item().Identifier().String(), "checksum", checksum.CalcVerbose(rep.Item()))
		}
	}

	c.outdatedStore.Clear()
	c.outdatedReps = nil
	for _, rep := range c.reps.All() {
		if outdatedItems[rep.Item().Reference()] {
			c.outdatedStore.Add(rep)
			c.outdatedReps = append(c.outdatedReps, rep)
		}
	}
	return nil
}

func (c *Compiler) forgetOutdatedDependencies(context.Context) error {
	seen := map[core.Reference]bool{}
	for _, rep := range c.outdatedReps {
		item := rep.Item()
		if seen[item.Reference()] {
			continue
		}
		seen[item.Reference()] = true
		c.depStore.ForgetDependenciesFor(item)
	}
	return nil
}

// storePreCompilationState persists the outdated set first: once the new
// checksums are stored, only that set still records which reps must be
// recompiled.
func (c *Compiler) storePreCompilationState(ctx context.Context) error {
	if err := c.timeStore(ctx, events.StoreStored, c.outdatedStore, c.outdatedStore.Store); err != nil {
		return err
	}

	var objs []core.Object
	for _, rep := range c.reps.All() {
		seq, err := c.sequences.SequenceFor(rep)
		if err != nil {
			return err
		}
		c.actionStore.Set(rep, seq)
		objs = append(objs, rep)
	}
	for _, l := range c.site.Layouts.All() {
		seq, err := c.sequences.SequenceFor(l)
		if err != nil {
			return err
		}
		c.actionStore.Set(l, seq)
		objs = append(objs, l)
	}
	c.actionStore.Retain(objs)
	c.checksumStore.Update(c.checksums)

	return multierr.Combine(
		c.timeStore(ctx, events.StoreStored, c.checksumStore, c.checksumStore.Store),
		c.timeStore(ctx, events.StoreStored, c.actionStore, c.actionStore.Store),
	)
}

func (c *Compiler) compileReps(ctx context.Context) (err error) {
	c.contents = content.NewStore()
	env := &compile.Env{
		Items:         c.site.Items,
		Layouts:       c.site.Layouts,
		Config:        c.site.Config,
		Reps:          c.reps,
		Sequences:     c.sequences,
		LayoutFilters: c.provider,
		Filters:       c.filters,
		Contents:      c.contents,
		Cache:         c.cache,
		Tracker:       deps.NewTracker(c.depStore, c.sink),
		Outdated:      c.outdatedStore,
		Sink:          c.sink,
		TmpDir:        c.tmpDir(),
	}
	defer func() {
		err = multierr.Combine(
			err,
			c.timeStore(ctx, events.StoreStored, c.outdatedStore, c.outdatedStore.Store),
			c.cache.Prune(c.site.Items.All()),
			c.timeStore(ctx, events.StoreStored, c.cache, c.cache.Store),
		)
	}()
	return compile.Reps(ctx, env, c.reps.All())
}

func (c *Compiler) storePostCompilationState(ctx context.Context) error {
	return c.timeStore(ctx, events.StoreStored, c.depStore, c.depStore.Store)
}

func (c *Compiler) cleanup(context.Context) error {
	if c.runID == "" {
		return nil
	}
	return os.RemoveAll(c.tmpDir())
}

func reasonNames(reasons []outdatedness.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.String()
	}
	return out
}
