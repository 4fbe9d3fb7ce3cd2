// Package build turns discovered applications into bundles: it parses the
// component definitions, resolves their build order, runs their fragments
// through the transformer in parallel and assembles one script and one style
// stream per application.
package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/conneroisu/snazzy/internal/assets"
	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/conneroisu/snazzy/internal/logging"
	"github.com/conneroisu/snazzy/internal/registry"
	"github.com/conneroisu/snazzy/internal/scanner"
	"github.com/conneroisu/snazzy/internal/transform"
)

// Options configure a pipeline.
type Options struct {
	// Prefix is the deployment prefix; empty disables asset rewriting.
	Prefix string
	// Parallelism bounds concurrent fragment transforms.
	Parallelism int
}

// Result describes one application build.
type Result struct {
	App        string
	Order      []string
	Components int
	ScriptSize int
	StyleSize  int
	Duration   time.Duration
	Err        error
}

// BuildPipeline builds applications one after another.
type BuildPipeline struct {
	transformer transform.Transformer
	stage       *TransformStage
	rewriter    *assets.Rewriter
	sink        Sink
	logger      logging.Logger
	metrics     *BuildMetrics
	callbacks   []BuildCallback
}

// BuildCallback is called when an application build completes
type BuildCallback func(result *Result)

// NewBuildPipeline creates a new build pipeline
func NewBuildPipeline(transformer transform.Transformer, sink Sink, opts Options, logger logging.Logger) *BuildPipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BuildPipeline{
		transformer: transformer,
		stage:       NewTransformStage(transformer, opts.Parallelism, logger),
		rewriter:    assets.NewRewriter(opts.Prefix),
		sink:        sink,
		logger:      logger.WithComponent("build"),
		metrics:     NewBuildMetrics(),
	}
}

// AddCallback registers a function run after every application build.
func (bp *BuildPipeline) AddCallback(callback BuildCallback) {
	bp.callbacks = append(bp.callbacks, callback)
}

// GetMetrics returns the current build metrics
func (bp *BuildPipeline) GetMetrics() BuildMetrics {
	return bp.metrics.GetSnapshot()
}

// BuildAll builds every application in order. A failing application does
// not stop the others; the returned error names every failure.
func (bp *BuildPipeline) BuildAll(ctx context.Context, apps []scanner.App) ([]*Result, error) {
	results := make([]*Result, 0, len(apps))
	var failed []string

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := bp.BuildApp(ctx, app)
		results = append(results, result)
		if result.Err != nil {
			failed = append(failed, app.Name)
		}
	}

	if len(failed) > 0 {
		return results, errors.NewBuildError(errors.ErrCodeBuildFailed,
			fmt.Sprintf("%d of %d applications failed: %s", len(failed), len(apps), strings.Join(failed, ", ")),
			firstErr(results))
	}
	return results, nil
}

// BuildApp builds one application. Nothing is written unless every step
// succeeds.
func (bp *BuildPipeline) BuildApp(ctx context.Context, app scanner.App) *Result {
	logger := bp.logger.With("app", app.Name)
	op := logging.StartOperation(logger, "build application")

	result, err := bp.buildApp(ctx, app, logger)
	result.App = app.Name
	result.Err = err

	if err != nil {
		result.Duration = op.EndWithError(ctx, err)
	} else {
		result.Duration = op.End(ctx,
			"components", result.Components,
			"script_bytes", result.ScriptSize,
			"style_bytes", result.StyleSize,
		)
	}

	bp.metrics.RecordBuild(result)
	for _, callback := range bp.callbacks {
		callback(result)
	}

	return result
}

func (bp *BuildPipeline) buildApp(ctx context.Context, app scanner.App, logger logging.Logger) (*Result, error) {
	result := &Result{}

	reg := registry.NewComponentRegistry()
	for _, path := range app.Components {
		rec, err := component.ParseFile(path, bp.rewriter)
		if err != nil {
			return result, err
		}
		if err := reg.Register(rec); err != nil {
			return result, err
		}
	}
	result.Components = reg.Count()

	order, err := reg.ResolveOrder()
	if err != nil {
		return result, err
	}
	result.Order = order
	logger.Debug(ctx, "build order resolved", "order", strings.Join(order, ","))

	fragments, err := bp.stage.Run(ctx, reg.All())
	if err != nil {
		return result, err
	}

	entry, err := bp.entryPoint(ctx, app.EntryPoint)
	if err != nil {
		return result, err
	}

	bundle, err := Assemble(order, fragments, entry)
	if err != nil {
		return result, err
	}

	page, err := bp.page(app.Page)
	if err != nil {
		return result, err
	}

	scriptName, styleName := assets.OutputNames(bp.rewriter.Prefix())
	out := &Output{
		App:        app.Name,
		ScriptName: scriptName,
		StyleName:  styleName,
		Bundle:     bundle,
		Page:       page,
	}
	if err := bp.sink.Write(ctx, out); err != nil {
		return result, err
	}

	result.ScriptSize = len(bundle.Script)
	result.StyleSize = len(bundle.Style)
	return result, nil
}

// entryPoint reads and transpiles the application's entry point script.
func (bp *BuildPipeline) entryPoint(ctx context.Context, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read entry point").
			WithLocation(path)
	}

	out, err := bp.transformer.TranspileScript(ctx, string(src))
	if err != nil {
		return "", errors.WrapBuild(err, errors.ErrCodeTransformFailed, "entry point transform failed", "").
			WithLocation(path)
	}
	return out, nil
}

// page reads the application page and rewrites its asset references.
func (bp *BuildPipeline) page(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read page").
			WithLocation(path)
	}

	out, err := bp.rewriter.RewritePage(bytes.NewReader(src))
	if err != nil {
		return nil, errors.WrapBuild(err, errors.ErrCodeBuildFailed, "page processing failed", "").
			WithLocation(path)
	}
	return out, nil
}

func firstErr(results []*Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
