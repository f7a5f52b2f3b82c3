package benchmark

import (
	"github.com/nvr-ai/go-tageval/common"
	"github.com/nvr-ai/go-tageval/loader"
	"github.com/nvr-ai/go-tageval/match"
)

// ImageResult holds the comparison of every detector against ground truth for one image.
//
// An ImageResult is built once and never modified afterwards.
type ImageResult struct {
	Image string
	// GroundTruth is the sorted, de-duplicated set of ground truth keys.
	GroundTruth       []common.DetectionKey
	GroundTruthStatus loader.Status
	RawGroundTruth    []common.Detection

	// Detections is each detector's key sequence in file order, duplicates kept.
	Detections     map[string][]common.DetectionKey
	RawDetections  map[string][]common.Detection
	Matches        map[string]match.Result
	Timings        map[string]common.OptionalTimings
	DetectorStatus map[string]loader.Status
}

// NewImageResult runs the match engine for every detector of one image.
//
// Arguments:
// - groundTruth: The loaded ground truth of the image.
// - detectors: The loaded output of each detector for the image.
//
// Returns:
// - *ImageResult: The completed result.
func NewImageResult(groundTruth loader.Result, detectors map[string]loader.Result) *ImageResult {
	gtKeys := groundTruth.File.Keys()

	res := &ImageResult{
		Image:             groundTruth.File.Image,
		GroundTruth:       match.NewKeySet(gtKeys).Sorted(),
		GroundTruthStatus: groundTruth.Status,
		RawGroundTruth:    groundTruth.File.Detections,
		Detections:        make(map[string][]common.DetectionKey, len(detectors)),
		RawDetections:     make(map[string][]common.Detection, len(detectors)),
		Matches:           make(map[string]match.Result, len(detectors)),
		Timings:           make(map[string]common.OptionalTimings, len(detectors)),
		DetectorStatus:    make(map[string]loader.Status, len(detectors)),
	}

	for name, det := range detectors {
		keys := det.File.Keys()
		res.Detections[name] = keys
		res.RawDetections[name] = det.File.Detections
		res.Matches[name] = match.Match(gtKeys, keys)
		res.Timings[name] = det.File.Timings
		res.DetectorStatus[name] = det.Status
	}

	return res
}

// Missed returns the detector's missed keys, empty when the detector is unknown.
func (r *ImageResult) Missed(detector string) match.KeySet {
	if m, ok := r.Matches[detector]; ok {
		return m.Missed
	}
	return match.KeySet{}
}

// FalsePositives returns the detector's false positive keys, empty when the detector is unknown.
func (r *ImageResult) FalsePositives(detector string) match.KeySet {
	if m, ok := r.Matches[detector]; ok {
		return m.FalsePositives
	}
	return match.KeySet{}
}
