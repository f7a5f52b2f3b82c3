// Package report - Lossless, deterministically ordered view of a comparison run for external renderers.
package report

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chewxy/math32"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-tageval/benchmark"
	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/match"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the data contract consumed by report renderers. Every set is a
// sorted list of "{family}:{id}" keys.
type Report struct {
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	GroundTruthDir string              `json:"ground_truth_dir"`
	DetectorsDir   string              `json:"detectors_dir"`
	Detectors      []string            `json:"detectors"`
	Summaries      []benchmark.Summary `json:"summaries"`
	Images         []Image             `json:"images"`
	Phases         []Phase             `json:"phases"`
}

// Phase is the wall time of one stage of the run.
type Phase struct {
	Name    string  `json:"name"`
	TotalMs float64 `json:"total_ms"`
}

// Image holds the comparison of every detector for one image.
type Image struct {
	Image             string                    `json:"image"`
	GroundTruth       []string                  `json:"ground_truth"`
	GroundTruthStatus string                    `json:"ground_truth_status"`
	GroundTruthRaw    []Detection               `json:"ground_truth_raw"`
	Detectors         map[string]DetectorResult `json:"detectors"`
}

// DetectorResult is one detector's outcome on one image.
type DetectorResult struct {
	Status         string                 `json:"status"`
	Detected       []string               `json:"detected"`
	TruePositives  int                    `json:"true_positives"`
	Missed         []string               `json:"missed"`
	FalsePositives []string               `json:"false_positives"`
	Raw            []Detection            `json:"raw"`
	Timings        common.OptionalTimings `json:"timings"`
}

// Detection is a raw detection with its overlay geometry.
type Detection struct {
	Key       string          `json:"key"`
	TagID     int             `json:"tag_id"`
	TagFamily string          `json:"tag_family"`
	Corners   []common.Corner `json:"corners"`
	// Overlay is nil when the detection does not have exactly four corners
	// or its geometry does not fit in float32.
	Overlay *Overlay `json:"overlay"`
}

// Overlay is display geometry derived from the corners.
type Overlay struct {
	Centroid  common.Point `json:"centroid"`
	Perimeter float32      `json:"perimeter"`
	Area      float32      `json:"area"`
	Bounds    common.Rect  `json:"bounds"`
}

// Build converts a run into its report form.
//
// Arguments:
// - run: A completed comparison run.
//
// Returns:
// - *Report: Images sorted by name, detectors in run order, key lists sorted by family then id.
func Build(run *benchmark.Run) *Report {
	names := make([]string, 0, len(run.Images))
	for name := range run.Images {
		names = append(names, name)
	}
	sort.Strings(names)

	images := make([]Image, 0, len(names))
	for _, name := range names {
		images = append(images, buildImage(run.Images[name], run.Detectors))
	}

	phases := make([]Phase, 0, len(run.Phases))
	for _, p := range run.Phases {
		phases = append(phases, Phase{Name: p.Name, TotalMs: float64(p.Total) / float64(time.Millisecond)})
	}

	return &Report{
		RunID:          run.ID,
		GeneratedAt:    run.StartedAt.UTC(),
		GroundTruthDir: run.GroundTruthDir,
		DetectorsDir:   run.DetectorsDir,
		Detectors:      append([]string{}, run.Detectors...),
		Summaries:      run.Summaries,
		Images:         images,
		Phases:         phases,
	}
}

func buildImage(img *benchmark.ImageResult, detectors []string) Image {
	out := Image{
		Image:             img.Image,
		GroundTruth:       keyStrings(img.GroundTruth),
		GroundTruthStatus: string(img.GroundTruthStatus),
		GroundTruthRaw:    rawDetections(img.RawGroundTruth),
		Detectors:         make(map[string]DetectorResult, len(detectors)),
	}

	for _, name := range detectors {
		m, ok := img.Matches[name]
		if !ok {
			m = match.Match(img.GroundTruth, nil)
		}

		status := string(img.DetectorStatus[name])
		if status == "" {
			status = "missing"
		}

		out.Detectors[name] = DetectorResult{
			Status:         status,
			Detected:       keyStrings(img.Detections[name]),
			TruePositives:  m.TruePositives,
			Missed:         m.Missed.Strings(),
			FalsePositives: m.FalsePositives.Strings(),
			Raw:            rawDetections(img.RawDetections[name]),
			Timings:        img.Timings[name],
		}
	}

	return out
}

// keyStrings renders a key sequence in file order, duplicates kept.
func keyStrings(keys []common.DetectionKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func rawDetections(detections []common.Detection) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		rd := Detection{
			Key:       d.Key().String(),
			TagID:     d.TagID,
			TagFamily: d.TagFamily,
			Corners:   d.Corners,
		}
		if rd.Corners == nil {
			rd.Corners = []common.Corner{}
		}
		rd.Overlay = overlayFor(d.Corners)
		out = append(out, rd)
	}
	return out
}

func overlayFor(corners []common.Corner) *Overlay {
	quad, ok := common.QuadFromCorners(corners)
	if !ok {
		return nil
	}

	o := &Overlay{
		Centroid:  quad.Centroid(),
		Perimeter: quad.Perimeter(),
		Area:      quad.Area(),
		Bounds:    quad.Bounds(),
	}
	for _, v := range []float32{
		o.Centroid.X, o.Centroid.Y, o.Perimeter, o.Area,
		o.Bounds.X1, o.Bounds.Y1, o.Bounds.X2, o.Bounds.Y2,
	} {
		if math32.IsInf(v, 0) || math32.IsNaN(v) {
			return nil
		}
	}
	return o
}

// Encode writes the report as indented JSON.
func (r *Report) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "failed to encode report")
}

// WriteJSON writes the report to path, creating parent directories.
// Nothing is written when the report cannot be encoded.
func (r *Report) WriteJSON(path string) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0o644), "failed to write report file")
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal report")
	}
	return &r, nil
}
