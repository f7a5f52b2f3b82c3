package benchmark

import (
	"math"
	"sort"

	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/loader"
	"github.com/nvr-ai/go-tageval/match"
)

// Aggregate builds one Summary per detector from the per-image results.
//
// Counts are summed over images, rates use guarded division (0 instead of
// NaN), and timings are averaged over the images that reported them. The
// order of results has no effect on the output.
//
// Arguments:
// - results: Image results keyed by image.
// - detectors: Detector names, in output order.
// - manifests: Declared supported families per detector; detectors without a manifest may be absent.
//
// Returns:
// - []Summary: One summary per detector, in the order of detectors.
func Aggregate(results map[string]*ImageResult, detectors []string, manifests map[string]common.Manifest) []Summary {
	// Timing sums are floating point; a fixed image order keeps them bit-identical across runs.
	images := make([]*ImageResult, 0, len(results))
	for _, key := range sortedKeys(results) {
		images = append(images, results[key])
	}

	summaries := make([]Summary, 0, len(detectors))
	for _, name := range detectors {
		manifest, hasManifest := manifests[name]
		summaries = append(summaries, summarize(name, images, manifest, hasManifest))
	}
	return summaries
}

func sortedKeys(results map[string]*ImageResult) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type familyTimingAcc struct {
	count    int
	initMs   float64
	detectMs float64
}

func summarize(name string, images []*ImageResult, manifest common.Manifest, hasManifest bool) Summary {
	s := Summary{
		Detector:               name,
		SupportedFamilies:      []string{},
		MissedByFamily:         map[string]int{},
		FalsePositivesByFamily: map[string]int{},
		TruePositivesByFamily:  map[string]int{},
	}
	if hasManifest {
		s.SupportedFamilies = append(s.SupportedFamilies, manifest.SupportedFamilies...)
	}

	families := map[string]*familyTimingAcc{}

	for _, img := range images {
		m, ok := img.Matches[name]
		if !ok {
			m = match.Match(img.GroundTruth, nil)
		}

		s.TotalGroundTruth += m.GroundTruthCount
		s.TotalDetected += m.DetectedCount
		s.Missed += m.Missed.Len()
		s.FalsePositives += m.FalsePositives.Len()
		s.Duplicates += m.Duplicates

		for k := range m.Missed {
			s.MissedByFamily[k.Family]++
			if hasManifest && !manifest.Supports(k.Family) {
				s.MissedUnsupported++
			}
		}
		for k := range m.FalsePositives {
			s.FalsePositivesByFamily[k.Family]++
		}
		for _, k := range img.GroundTruth {
			if !m.Missed.Has(k) {
				s.TruePositivesByFamily[k.Family]++
			}
		}

		switch img.DetectorStatus[name] {
		case loader.StatusLoaded:
			s.ImagesEvaluated++
		case loader.StatusMalformed:
			s.ImagesMalformed++
		default:
			s.ImagesMissing++
		}

		timings, ok := img.Timings[name].Get()
		if !ok {
			continue
		}
		loadMs := s.Timing.TotalImageLoadMs + timings.ImageLoadMs
		detectMs := s.Timing.TotalDetectionMs + timings.TotalDetectionMs
		if !finite(loadMs, detectMs) {
			s.Timing.SkippedImages++
			continue
		}
		s.Timing.ImageCount++
		s.Timing.TotalImageLoadMs = loadMs
		s.Timing.TotalDetectionMs = detectMs
		for _, ft := range timings.FamilyTimings {
			acc, ok := families[ft.Family]
			if !ok {
				acc = &familyTimingAcc{}
				families[ft.Family] = acc
			}
			initMs, famDetectMs := acc.initMs+ft.InitializationMs, acc.detectMs+ft.DetectionMs
			if !finite(initMs, famDetectMs) {
				continue
			}
			acc.count++
			acc.initMs = initMs
			acc.detectMs = famDetectMs
		}
	}

	s.TruePositives = s.TotalGroundTruth - s.Missed
	s.Precision = ratio(float64(s.TruePositives), float64(s.TotalDetected))
	s.Recall = ratio(float64(s.TruePositives), float64(s.TotalGroundTruth))
	s.F1 = f1Score(s.Precision, s.Recall)

	imageCount := float64(s.Timing.ImageCount)
	s.Timing.AvgImageLoadMs = ratio(s.Timing.TotalImageLoadMs, imageCount)
	s.Timing.AvgDetectionMs = ratio(s.Timing.TotalDetectionMs, imageCount)
	s.Timing.Families = summarizeFamilies(families)

	return s
}

// finite reports whether every value can be encoded as JSON.
func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func summarizeFamilies(families map[string]*familyTimingAcc) []FamilyTimingSummary {
	out := make([]FamilyTimingSummary, 0, len(families))
	for family, acc := range families {
		n := float64(acc.count)
		out = append(out, FamilyTimingSummary{
			Family:                family,
			Count:                 acc.count,
			TotalInitializationMs: acc.initMs,
			TotalDetectionMs:      acc.detectMs,
			AvgInitializationMs:   ratio(acc.initMs, n),
			AvgDetectionMs:        ratio(acc.detectMs, n),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Family < out[j].Family
	})
	return out
}
