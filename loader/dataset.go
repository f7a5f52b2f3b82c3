package loader

import (
	"context"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/util"
)

// Options controls LoadDataset.
type Options struct {
	// GroundTruthDir holds one <stem>.json per image.
	GroundTruthDir string
	// DetectorsDir holds one sub-directory per detector, each with <stem>.json files and an optional manifest.json.
	DetectorsDir string
	// Detectors restricts and orders the detectors. Empty means every sub-directory of DetectorsDir.
	Detectors []string
	// Workers bounds the number of images loaded concurrently. Values below 1 mean runtime.NumCPU().
	Workers int
	// Logger receives per-file warnings. Nil uses the logrus standard logger.
	Logger logrus.FieldLogger
}

// Image holds every loaded file for one image.
type Image struct {
	Stem        string
	GroundTruth Result
	Detectors   map[string]Result
}

// Dataset is the fully materialised input of a comparison run.
type Dataset struct {
	Detectors []string
	Images    map[string]*Image
	Manifests map[string]common.Manifest
}

// LoadDataset discovers the ground-truth files and loads, for each image, the
// ground truth and every detector's output.
//
// Images are loaded concurrently; each worker only writes its own image, so
// completion order has no effect on the result. Per-file failures never fail
// the call. The only errors are ErrNoGroundTruth, an unreadable directory and
// context cancellation.
//
// Arguments:
// - ctx: Context bounding the whole load.
// - opts: Locations, detector selection and concurrency.
//
// Returns:
// - *Dataset: Images keyed by stem, detectors in evaluation order, manifests by detector.
// - error: Error if nothing can be evaluated.
//
// @example
// ds, err := LoadDataset(ctx, Options{GroundTruthDir: "gt", DetectorsDir: "out"})
//
//	if errors.Is(err, ErrNoGroundTruth) {
//	    log.Fatal("dataset is empty")
//	}
func LoadDataset(ctx context.Context, opts Options) (*Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	refs, err := util.ListDetectionFiles(opts.GroundTruthDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ground truth")
	}
	if len(refs) == 0 {
		return nil, errors.Wrapf(ErrNoGroundTruth, "directory %s", opts.GroundTruthDir)
	}

	refs = dropStemCollisions(refs, logger)

	detectors, err := resolveDetectors(opts)
	if err != nil {
		return nil, err
	}

	manifests := make(map[string]common.Manifest, len(detectors))
	for _, name := range detectors {
		if manifest, ok := LoadManifest(filepath.Join(opts.DetectorsDir, name, util.ManifestName)); ok {
			manifests[name] = manifest
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	slots := make([]*Image, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = loadImage(ref, opts.DetectorsDir, detectors, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "dataset load interrupted")
	}

	images := make(map[string]*Image, len(slots))
	for _, img := range slots {
		images[img.Stem] = img
	}

	logger.WithFields(logrus.Fields{
		"images":    len(images),
		"detectors": len(detectors),
		"manifests": len(manifests),
	}).Info("dataset loaded")

	return &Dataset{
		Detectors: detectors,
		Images:    images,
		Manifests: manifests,
	}, nil
}

func resolveDetectors(opts Options) ([]string, error) {
	if len(opts.Detectors) > 0 {
		detectors := make([]string, 0, len(opts.Detectors))
		for _, name := range opts.Detectors {
			if !slices.Contains(detectors, name) {
				detectors = append(detectors, name)
			}
		}
		return detectors, nil
	}

	names, err := util.ListDetectorDirs(opts.DetectorsDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list detectors")
	}

	// The ground truth directory may live next to the detector outputs.
	gtAbs, _ := filepath.Abs(opts.GroundTruthDir)
	detectors := make([]string, 0, len(names))
	for _, name := range names {
		dirAbs, _ := filepath.Abs(filepath.Join(opts.DetectorsDir, name))
		if dirAbs == gtAbs {
			continue
		}
		detectors = append(detectors, name)
	}

	return detectors, nil
}

// dropStemCollisions keeps the first file of each stem (refs are sorted by
// stem, then path) and logs the ones it drops.
func dropStemCollisions(refs []util.DetectionFileRef, logger logrus.FieldLogger) []util.DetectionFileRef {
	out := refs[:0:0]
	for _, ref := range refs {
		if n := len(out); n > 0 && out[n-1].Stem == ref.Stem {
			logger.WithFields(logrus.Fields{
				"stem": ref.Stem,
				"kept": out[n-1].Path,
				"file": ref.Path,
			}).Warn("ground truth files share a stem, ignoring duplicate")
			continue
		}
		out = append(out, ref)
	}
	return out
}

func loadImage(ref util.DetectionFileRef, detectorsDir string, detectors []string, logger logrus.FieldLogger) *Image {
	img := &Image{
		Stem:        ref.Stem,
		GroundTruth: LoadDetectionFile(ref.Path),
		Detectors:   make(map[string]Result, len(detectors)),
	}
	logResult(logger, "ground_truth", img.GroundTruth)

	for _, name := range detectors {
		res := LoadDetectionFile(filepath.Join(detectorsDir, name, ref.Stem+".json"))
		logResult(logger, name, res)
		img.Detectors[name] = res
	}

	return img
}

func logResult(logger logrus.FieldLogger, source string, res Result) {
	if res.Loaded() {
		if unknown := unknownFamilies(res.File); len(unknown) > 0 {
			logger.WithFields(logrus.Fields{
				"source":   source,
				"image":    res.File.Image,
				"families": unknown,
			}).Warn("detection file reports unrecognised tag families")
		}
		return
	}

	switch res.Status {
	case StatusMalformed:
		logger.WithFields(logrus.Fields{
			"source": source,
			"image":  res.File.Image,
			"error":  res.Err,
		}).Warn("malformed detection file treated as empty")
	case StatusMissing:
		logger.WithFields(logrus.Fields{
			"source": source,
			"image":  res.File.Image,
		}).Debug("detection file missing")
	}
}

// unknownFamilies returns the sorted, distinct families of file outside common.KnownFamilies.
func unknownFamilies(file common.DetectionFile) []string {
	var unknown []string
	for _, d := range file.Detections {
		if !common.IsKnownFamily(d.TagFamily) && !slices.Contains(unknown, d.TagFamily) {
			unknown = append(unknown, d.TagFamily)
		}
	}
	slices.Sort(unknown)
	return unknown
}
