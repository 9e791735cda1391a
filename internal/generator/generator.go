// Package generator orchestrates the declaration pipeline: manifest
// loading, model building, resolution, and emission.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/luadecl/internal/builder"
	"github.com/leapstack-labs/luadecl/internal/emitter"
	"github.com/leapstack-labs/luadecl/internal/luatype"
	"github.com/leapstack-labs/luadecl/internal/manifest"
	"github.com/leapstack-labs/luadecl/internal/naming"
	"github.com/leapstack-labs/luadecl/internal/resolver"
	"github.com/leapstack-labs/luadecl/pkg/decl"
	"github.com/leapstack-labs/luadecl/pkg/diag"
	"github.com/leapstack-labs/luadecl/pkg/token"
)

// debounceWindow coalesces filesystem event bursts in watch mode.
const debounceWindow = 250 * time.Millisecond

// Config holds generator configuration.
type Config struct {
	// InputDir is the manifest directory, or a single manifest file.
	InputDir string
	// OutputPath is the declaration file, or a directory for one file
	// per top-level module.
	OutputPath string
	Strictness luatype.Strictness
	// Prefix is stripped from raw names where the result stays unambiguous.
	Prefix string
	// Renames maps raw names to explicit exported names.
	Renames map[string]string
	// Hook resolves programmatic renames, may be nil.
	Hook naming.Hook
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Result carries the outcome of one generation run.
type Result struct {
	// Files lists the declaration files written, nil for check runs.
	Files []string
	// Diagnostics holds every diagnostic collected across the run.
	Diagnostics *diag.Bag
}

// Engine runs the pipeline. All state is per-run; an Engine can be
// reused across watch iterations.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Load discovers manifests under the input path and builds the
// declaration model. Units build in parallel; the merged declaration
// list preserves input path order, so output stays deterministic
// regardless of scheduling.
func (e *Engine) Load(ctx context.Context) ([]decl.Declaration, *diag.Bag, error) {
	bag := &diag.Bag{}

	paths, err := manifest.Discover(e.cfg.InputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering manifests in %s: %w", e.cfg.InputDir, err)
	}
	if len(paths) == 0 {
		return nil, bag, nil
	}

	b := builder.New(e.logger)
	perUnit := make([][]decl.Declaration, len(paths))
	perBag := make([]*diag.Bag, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := manifest.Load(path)
			if err != nil {
				unitBag := &diag.Bag{}
				unitBag.Addf(diag.IOFailure, diag.SeverityError,
					token.Site{Unit: path}, "loading manifest: %v", err)
				perBag[i] = unitBag
				return nil
			}
			perUnit[i], perBag[i] = b.BuildFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var decls []decl.Declaration
	for i := range paths {
		decls = append(decls, perUnit[i]...)
		if perBag[i] != nil {
			bag.Merge(perBag[i])
		}
	}

	e.logger.Debug("loaded manifests",
		"units", len(paths),
		"declarations", len(decls),
		"diagnostics", bag.Len())
	return decls, bag, nil
}

// Resolve runs the global validation and naming pass.
func (e *Engine) Resolve(decls []decl.Declaration) (*resolver.Tree, *diag.Bag) {
	transformer := naming.New(e.cfg.Prefix, e.cfg.Renames, e.cfg.Hook)
	mapper := luatype.New(e.cfg.Strictness)
	return resolver.New(transformer, mapper, e.logger).Resolve(decls)
}

// Emit writes the resolved tree to the configured output path.
func (e *Engine) Emit(tree *resolver.Tree) ([]string, *diag.Bag) {
	return emitter.New(e.logger).Write(e.cfg.OutputPath, tree)
}

// Run executes the full pipeline. Emission only happens when the run
// carries zero fatal diagnostics; a fatal run writes nothing.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result, tree, err := e.analyze(ctx)
	if err != nil || result.Diagnostics.HasFatal() || tree == nil {
		return result, err
	}

	files, emitBag := e.Emit(tree)
	result.Diagnostics.Merge(emitBag)
	result.Files = files
	return result, nil
}

// Check executes the pipeline without writing output.
func (e *Engine) Check(ctx context.Context) (*Result, error) {
	result, _, err := e.analyze(ctx)
	return result, err
}

// analyze runs load + resolve and merges their diagnostics.
func (e *Engine) analyze(ctx context.Context) (*Result, *resolver.Tree, error) {
	decls, loadBag, err := e.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	result := &Result{Diagnostics: loadBag}
	if loadBag.HasFatal() {
		return result, nil, nil
	}

	tree, resolveBag := e.Resolve(decls)
	result.Diagnostics.Merge(resolveBag)
	return result, tree, nil
}

// Watch re-runs the pipeline on every manifest change until the context
// is cancelled. Each completed run is reported through onRun, including
// failed ones; the watcher itself only stops on context cancellation or
// a watcher setup error.
func (e *Engine) Watch(ctx context.Context, onRun func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := e.watchDir(watcher, e.cfg.InputDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", e.cfg.InputDir, err)
	}

	// Initial run before the first event.
	onRun(e.Run(ctx))

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				// New subdirectories need watching too.
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceWindow, func() {
				e.logger.Info("change detected", "file", filepath.Base(event.Name))
				onRun(e.Run(ctx))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)
		}
	}
}

// watchDir recursively adds a directory (or registers a single file's
// parent) with the watcher.
func (e *Engine) watchDir(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name := info.Name(); len(name) > 0 && name[0] == '.' && path != root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
