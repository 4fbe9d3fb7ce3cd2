package build

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/conneroisu/snazzy/internal/logging"
	"github.com/conneroisu/snazzy/internal/transform"
)

// Transformed holds the processed fragments of one component. A fragment
// that was absent in the definition is empty and its Has flag is false.
type Transformed struct {
	Template    string
	Script      string
	Style       string
	HasTemplate bool
	HasScript   bool
	HasStyle    bool
}

// FragmentSet maps component names to their processed fragments.
type FragmentSet map[string]Transformed

// TransformStage runs the fragments of many components through a
// transformer on a bounded number of goroutines.
type TransformStage struct {
	transformer transform.Transformer
	parallelism int
	logger      logging.Logger
}

// NewTransformStage creates a stage running at most parallelism transforms
// at once. Values below one are treated as one.
func NewTransformStage(transformer transform.Transformer, parallelism int, logger logging.Logger) *TransformStage {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &TransformStage{
		transformer: transformer,
		parallelism: parallelism,
		logger:      logger.WithComponent("transform"),
	}
}

// Run transforms every record. The first failure cancels the remaining work
// and is returned wrapped with the failing component's name and source; no
// partial set is returned. The result does not depend on the order in which
// workers finish.
func (s *TransformStage) Run(ctx context.Context, records []*component.Record) (FragmentSet, error) {
	seen := make(map[string]*component.Record, len(records))
	for _, rec := range records {
		if first, dup := seen[rec.Name()]; dup {
			return nil, &errors.MalformedComponentError{
				Source:  rec.Source(),
				Element: "name",
				Reason:  "duplicate component name " + rec.Name() + ", first defined in " + first.Source(),
			}
		}
		seen[rec.Name()] = rec
	}

	// Each worker writes only its own slot.
	results := make([]Transformed, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out, err := s.transformRecord(gctx, rec)
			if err != nil {
				return errors.WrapBuild(err, errors.ErrCodeTransformFailed,
					"fragment transform failed", rec.Name()).
					WithLocation(rec.Source())
			}

			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(FragmentSet, len(records))
	for i, rec := range records {
		set[rec.Name()] = results[i]
	}
	return set, nil
}

func (s *TransformStage) transformRecord(ctx context.Context, rec *component.Record) (Transformed, error) {
	var (
		out Transformed
		err error
	)

	if tpl := rec.Template(); tpl.Present {
		if out.Template, err = s.transformer.CompileTemplate(ctx, rec.Name(), tpl.Text); err != nil {
			return Transformed{}, err
		}
		out.HasTemplate = true
	}

	if script := rec.Script(); script.Present {
		if out.Script, err = s.transformer.TranspileScript(ctx, script.Text); err != nil {
			return Transformed{}, err
		}
		out.HasScript = true
	}

	if style := rec.Style(); style.Present {
		if out.Style, err = s.transformer.CompileStyle(ctx, style.Text); err != nil {
			return Transformed{}, err
		}
		out.HasStyle = true
	}

	s.logger.Debug(ctx, "component transformed", "name", rec.Name())

	return out, nil
}
