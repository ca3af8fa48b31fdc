package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/config"
	"github.com/xmppscan/xmppscan/scanner/internal/discovery"
	"github.com/xmppscan/xmppscan/scanner/internal/export"
	"github.com/xmppscan/xmppscan/scanner/internal/feeds"
	"github.com/xmppscan/xmppscan/scanner/internal/history"
	"github.com/xmppscan/xmppscan/scanner/internal/metrics"
	"github.com/xmppscan/xmppscan/scanner/internal/reconcile"
	"github.com/xmppscan/xmppscan/scanner/internal/render"
	"github.com/xmppscan/xmppscan/scanner/internal/software"
)

// Stage names used in StageError.
const (
	StageHistory  = "history"
	StageOutput   = "output"
	StageRender   = "render"
	StageExport   = "export"
	StageMetrics  = "metrics"
	StageDatabase = "database"
)

// StageError is a non-fatal failure of one stage or artifact.
type StageError struct {
	Stage    string
	Artifact string
	Err      error
}

func (e *StageError) Error() string {
	if e.Artifact == "" {
		return e.Stage + ": " + e.Err.Error()
	}
	return e.Stage + " " + e.Artifact + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Result summarises a run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Endpoints int
	Online    int
	Views     []render.ViewResult
	Failures  []*StageError
}

// Err joins all stage failures, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Result) fail(stage, artifact string, err error) {
	r.Failures = append(r.Failures, &StageError{Stage: stage, Artifact: artifact, Err: err})
}

// Runner executes runs against one configuration.
type Runner struct {
	cfg *config.Config

	// RenderOnly skips reading inputs and updating history; the artifacts
	// are rebuilt from the stored snapshot.
	RenderOnly bool

	// Version is embedded in the report footer.
	Version string

	now func() time.Time // injectable for deterministic tests
}

// New returns a Runner for cfg.
func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg, now: time.Now}
}

// Run performs one cycle. A non-nil error means the run aborted before
// writing anything.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: r.now().UTC()}
	log := slog.With("run_id", res.RunID)
	sc := r.cfg.Scanner
	store := history.NewStore(sc.StateFile)

	rend, err := r.renderer()
	if err != nil {
		return nil, err
	}

	var records []*types.EndpointRecord
	if r.RenderOnly {
		snap, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("run: render-only: %w", err)
		}
		if snap == nil {
			return nil, fmt.Errorf("run: render-only: no snapshot at %q", sc.StateFile)
		}
		log.Info("run: rendering stored snapshot", "saved_at", snap.SavedAt, "endpoints", snap.Len())
		records = snap.Endpoints
	} else {
		current, err := r.scan()
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prior := store.LoadOrFirstRun()
		records = history.Update(current, prior, res.StartedAt, sc.Retention())
		if err := store.Save(records, res.StartedAt); err != nil {
			log.Error("run: history not saved, next run will not see this scan", "path", sc.StateFile, "err", err)
			res.fail(StageHistory, sc.StateFile, err)
		}
	}

	res.Endpoints = len(records)
	for _, rec := range records {
		if rec.Available {
			res.Online++
		}
	}

	r.publish(ctx, log, rend, records, res)

	log.Info("run: finished",
		"endpoints", res.Endpoints,
		"online", res.Online,
		"failures", len(res.Failures),
		"elapsed", r.now().Sub(res.StartedAt).String(),
	)
	return res, nil
}

// scan reads every input and assembles the current scan.
func (r *Runner) scan() ([]*types.EndpointRecord, error) {
	sc := r.cfg.Scanner

	recs, err := feeds.ReadAll(sc.Feeds)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	metadata, err := reconcile.Merge(recs)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	var static []string
	if sc.TargetsFile != "" {
		if static, err = feeds.ReadTargets(sc.TargetsFile); err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
	}
	targets, err := reconcile.Targets(metadata, static)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	results, err := discovery.Load(sc.DiscoveryResults)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	slog.Debug("run: inputs read",
		"feeds", len(sc.Feeds), "feed_records", len(recs),
		"targets", len(targets), "discovery_results", len(results))
	return discovery.Assemble(targets, results, metadata), nil
}

// renderer prepares the HTML renderer, or returns nil when HTML output is
// disabled. Failures here are configuration errors.
func (r *Runner) renderer() (*render.Renderer, error) {
	out := r.cfg.Scanner.Output
	if !out.HTML.Enabled {
		return nil, nil
	}
	columns, err := out.HTML.ServiceKinds()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	table, err := software.Load(r.cfg.Scanner.SoftwareOverrides)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	assets, err := render.LoadAssets(out.ImagesDirectory())
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	rend, err := render.New(render.Options{
		Dir:            out.Directory,
		Prefix:         out.HTML.Prefix,
		Columns:        columns,
		HeaderEvery:    out.HTML.HeaderEvery,
		MinReliability: config.Threshold(out.HTML.MinReliability),
		ShrinkNamesTo:  out.HTML.ShrinkNamesTo,
		Compress:       out.Compress,
		Assets:         assets,
		Software:       table,
		Version:        r.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return rend, nil
}

// publish writes every configured artifact. Each failure is recorded and
// the remaining artifacts are still attempted.
func (r *Runner) publish(ctx context.Context, log *slog.Logger, rend *render.Renderer, records []*types.EndpointRecord, res *Result) {
	out := r.cfg.Scanner.Output
	now := res.StartedAt

	dirOK := true
	if rend != nil || out.Export.Enabled {
		if err := os.MkdirAll(out.Directory, 0o755); err != nil {
			log.Error("run: cannot create output directory", "path", out.Directory, "err", err)
			res.fail(StageOutput, out.Directory, err)
			dirOK = false
		}
	}

	if rend != nil && dirOK {
		rows, err := rend.BuildRows(records)
		if err != nil {
			res.fail(StageRender, "rows", err)
		} else {
			res.Views = rend.RenderAll(ctx, records, rows, now)
			for _, v := range res.Views {
				if v.Err != nil {
					res.fail(StageRender, v.Path, v.Err)
				}
			}
			log.Info("run: views rendered", "views", len(res.Views), "endpoints", rows.Len())
		}
	}

	if out.Export.Enabled && dirOK {
		path := filepath.Join(out.Directory, out.Export.Filename)
		doc := export.Build(records, config.Threshold(out.Export.MinReliability), now)
		if err := export.Write(path, out.Export.Format, doc, out.Compress); err != nil {
			log.Error("run: export failed", "path", path, "err", err)
			res.fail(StageExport, path, err)
		} else {
			log.Info("run: export written", "path", path, "servers", len(doc.Servers))
		}
	}

	if path := out.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(path, records, now); err != nil {
			log.Error("run: metrics textfile failed", "path", path, "err", err)
			res.fail(StageMetrics, path, err)
		}
	}

	if path := r.cfg.Scanner.Database.Path; path != "" {
		if err := writeDatabase(ctx, path, records, now); err != nil {
			log.Error("run: database export failed", "path", path, "err", err)
			res.fail(StageDatabase, path, err)
		}
	}
}

func writeDatabase(ctx context.Context, path string, records []*types.EndpointRecord, now time.Time) error {
	sink, err := export.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.Replace(ctx, records, now)
}
