package benchmark

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/config"
	"github.com/nvr-ai/go-tageval/loader"
	"github.com/nvr-ai/go-tageval/profiler"
)

// Run is the complete, immutable outcome of one comparison.
type Run struct {
	ID             string
	StartedAt      time.Time
	Duration       time.Duration
	GroundTruthDir string
	DetectorsDir   string
	Detectors      []string
	Manifests      map[string]common.Manifest
	Images         map[string]*ImageResult
	Summaries      []Summary
	Phases         []profiler.PhaseStats
}

// Suite executes a comparison run: load, match per image, aggregate.
type Suite struct {
	cfg      config.Config
	logger   logrus.FieldLogger
	profiler *profiler.Profiler
}

// NewSuite creates a suite for the given configuration.
//
// Arguments:
//   - cfg: The run configuration. It is copied.
//   - logger: Destination for progress and per-file warnings. Nil uses the logrus standard logger.
//
// Returns:
//   - *Suite: The suite.
func NewSuite(cfg *config.Config, logger logrus.FieldLogger) *Suite {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Suite{
		cfg:      *cfg,
		logger:   logger,
		profiler: profiler.New(),
	}
}

// Profiler exposes the phase timings of the most recent Run.
func (s *Suite) Profiler() *profiler.Profiler {
	return s.profiler
}

// Run loads the dataset, matches every image and aggregates the summaries.
//
// The error wraps loader.ErrNoGroundTruth when no ground truth exists; every
// other per-file problem is absorbed into the results.
func (s *Suite) Run(ctx context.Context) (*Run, error) {
	started := time.Now()
	s.profiler = profiler.New()

	loadCtx := ctx
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}

	done := s.profiler.StartOperation("load")
	ds, err := loader.LoadDataset(loadCtx, loader.Options{
		GroundTruthDir: s.cfg.GroundTruthDir,
		DetectorsDir:   s.cfg.DetectorsDir,
		Detectors:      s.cfg.Detectors,
		Workers:        s.cfg.Workers,
		Logger:         s.logger,
	})
	done()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load dataset")
	}

	done = s.profiler.StartOperation("match")
	images := BuildImageResults(ds)
	done()

	done = s.profiler.StartOperation("aggregate")
	summaries := Aggregate(images, ds.Detectors, ds.Manifests)
	done()

	for _, summary := range summaries {
		s.logger.WithFields(logrus.Fields{
			"detector":        summary.Detector,
			"precision":       summary.Precision,
			"recall":          summary.Recall,
			"f1":              summary.F1,
			"missed":          summary.Missed,
			"false_positives": summary.FalsePositives,
		}).Info("detector summary")
	}

	return &Run{
		ID:             uuid.NewString(),
		StartedAt:      started,
		Duration:       time.Since(started),
		GroundTruthDir: s.cfg.GroundTruthDir,
		DetectorsDir:   s.cfg.DetectorsDir,
		Detectors:      ds.Detectors,
		Manifests:      ds.Manifests,
		Images:         images,
		Summaries:      summaries,
		Phases:         s.profiler.Phases(),
	}, nil
}

// BuildImageResults matches every image of a dataset. Each result is built
// independently before it is stored.
func BuildImageResults(ds *loader.Dataset) map[string]*ImageResult {
	images := make(map[string]*ImageResult, len(ds.Images))
	for stem, img := range ds.Images {
		images[stem] = NewImageResult(img.GroundTruth, img.Detectors)
	}
	return images
}
