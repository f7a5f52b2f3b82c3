package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-tageval/benchmark"
	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/loader"
	"github.com/nvr-ai/go-tageval/profiler"
)

func square(family string, id int, x, y float64) common.Detection {
	return common.Detection{
		TagID:     id,
		TagFamily: family,
		Corners:   []common.Corner{{X: x, Y: y}, {X: x + 2, Y: y}, {X: x + 2, Y: y + 2}, {X: x, Y: y + 2}},
	}
}

func result(image string, timings common.OptionalTimings, detections ...common.Detection) loader.Result {
	return loader.Result{
		File:   common.DetectionFile{Image: image, Detections: detections, Timings: timings},
		Status: loader.StatusLoaded,
	}
}

func newRun() *benchmark.Run {
	images := map[string]*benchmark.ImageResult{
		"b": benchmark.NewImageResult(
			result("b.jpg", common.NoTimings(), square("tag36h11", 10, 0, 0), square("tag16h5", 2, 5, 5)),
			map[string]loader.Result{
				"alpha": result("b.jpg", common.SomeTimings(common.Timings{TotalDetectionMs: 40}),
					square("tag36h11", 10, 0, 0), square("tag36h11", 9, 1, 1), square("tag36h11", 9, 1, 1)),
			},
		),
		"a": benchmark.NewImageResult(
			result("a.jpg", common.NoTimings(), square("tag36h11", 1, 0, 0)),
			map[string]loader.Result{
				"alpha": result("a.jpg", common.NoTimings(), common.Detection{TagID: 1, TagFamily: "tag36h11"}),
			},
		),
	}
	detectors := []string{"alpha", "beta"}

	return &benchmark.Run{
		ID:             "run-1",
		StartedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		GroundTruthDir: "gt",
		DetectorsDir:   "out",
		Detectors:      detectors,
		Images:         images,
		Summaries:      benchmark.Aggregate(images, detectors, nil),
		Phases:         []profiler.PhaseStats{{Name: "load", Count: 1, Total: 1500 * time.Microsecond}},
	}
}

func TestBuild(t *testing.T) {
	r := Build(newRun())

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, []string{"alpha", "beta"}, r.Detectors)
	require.Len(t, r.Summaries, 2)
	require.Len(t, r.Phases, 1)
	assert.InDelta(t, 1.5, r.Phases[0].TotalMs, 1e-9)

	require.Len(t, r.Images, 2)
	assert.Equal(t, "a.jpg", r.Images[0].Image)
	assert.Equal(t, "b.jpg", r.Images[1].Image)

	b := r.Images[1]
	assert.Equal(t, []string{"tag16h5:2", "tag36h11:10"}, b.GroundTruth)
	assert.Equal(t, "loaded", b.GroundTruthStatus)
	require.Len(t, b.GroundTruthRaw, 2)

	alpha := b.Detectors["alpha"]
	assert.Equal(t, "loaded", alpha.Status)
	assert.Equal(t, []string{"tag36h11:10", "tag36h11:9", "tag36h11:9"}, alpha.Detected, "raw sequence keeps file order")
	assert.Equal(t, 1, alpha.TruePositives)
	assert.Equal(t, []string{"tag16h5:2"}, alpha.Missed)
	assert.Equal(t, []string{"tag36h11:9"}, alpha.FalsePositives)
	assert.Len(t, alpha.Raw, 3)
	assert.True(t, alpha.Timings.Present())

	beta := b.Detectors["beta"]
	assert.Equal(t, "missing", beta.Status)
	assert.Empty(t, beta.Detected)
	assert.Equal(t, []string{"tag16h5:2", "tag36h11:10"}, beta.Missed)
	assert.Empty(t, beta.FalsePositives)
	assert.False(t, beta.Timings.Present())
}

func TestBuildOverlay(t *testing.T) {
	r := Build(newRun())

	gt := r.Images[1].GroundTruthRaw[0]
	assert.Equal(t, "tag36h11:10", gt.Key)
	require.NotNil(t, gt.Overlay)
	assert.InDelta(t, 1.0, gt.Overlay.Centroid.X, 1e-6)
	assert.InDelta(t, 1.0, gt.Overlay.Centroid.Y, 1e-6)
	assert.InDelta(t, 8.0, gt.Overlay.Perimeter, 1e-6)
	assert.InDelta(t, 4.0, gt.Overlay.Area, 1e-6)
	assert.Equal(t, common.Rect{X1: 0, Y1: 0, X2: 2, Y2: 2}, gt.Overlay.Bounds)

	cornerless := r.Images[0].Detectors["alpha"].Raw[0]
	assert.Nil(t, cornerless.Overlay)
	assert.NotNil(t, cornerless.Corners)
	assert.Empty(t, cornerless.Corners)
}

func TestOverlayOutOfRange(t *testing.T) {
	testCases := []struct {
		name    string
		corners []common.Corner
	}{
		{name: "beyond_float32", corners: []common.Corner{{X: 1e300}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}},
		{name: "area_overflow", corners: []common.Corner{{X: -1e20, Y: -1e20}, {X: 1e20, Y: -1e20}, {X: 1e20, Y: 1e20}, {X: -1e20, Y: 1e20}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, overlayFor(tc.corners))
		})
	}

	assert.NotNil(t, overlayFor([]common.Corner{{X: 0}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}))
}

func TestWriteJSONLeavesNoFileOnEncodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := Build(newRun())
	r.Summaries[0].Precision = math.Inf(1)

	assert.Error(t, r.WriteJSON(path))
	assert.NoFileExists(t, path)
}

func TestBuildIsDeterministic(t *testing.T) {
	run := newRun()

	var first, second bytes.Buffer
	require.NoError(t, Build(run).Encode(&first))
	require.NoError(t, Build(run).Encode(&second))

	assert.Equal(t, first.String(), second.String())
}

func TestWriteAndReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	r := Build(newRun())

	require.NoError(t, r.WriteJSON(path))

	got, err := ReadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, r.RunID, got.RunID)
	assert.True(t, r.GeneratedAt.Equal(got.GeneratedAt))
	require.Len(t, got.Images, 2)
	assert.Equal(t, r.Images[1].Detectors["alpha"].FalsePositives, got.Images[1].Detectors["alpha"].FalsePositives)
	assert.True(t, got.Images[1].Detectors["alpha"].Timings.Present())
	assert.False(t, got.Images[1].Detectors["beta"].Timings.Present())
	assert.Equal(t, r.Summaries[0].Precision, got.Summaries[0].Precision)
}

func TestReadJSONMissing(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := Build(newRun()).Markdown()

	assert.Contains(t, md, "**Run:** run-1")
	assert.Contains(t, md, "| alpha | 3 | 3 | 2 | 1 | 1 |")
	assert.Contains(t, md, "| beta | 3 | 0 | 0 | 3 | 0 | 0.0000 | 0.0000 | 0.0000 | n/a |")
	assert.Contains(t, md, "### alpha by family")
	assert.Contains(t, md, "| tag16h5 | 1 | 0 |")
	assert.Contains(t, md, "- **b.jpg** / alpha (loaded): missed tag16h5:2 false positives tag36h11:9")
	assert.Contains(t, md, "- **a.jpg** / beta (missing): missed tag36h11:1")
	assert.NotContains(t, md, "**a.jpg** / alpha")
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	r := Build(newRun())

	require.NoError(t, r.WriteMarkdown(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown(), string(data))
}
