// Package match compares one detector's detections against ground truth for a
// single image.
//
// Matching is by identity only: a detection matches ground truth when both
// the tag id and the tag family are equal. Corner positions are ignored and
// repeated detections of the same tag count once, so the result measures
// coverage rather than count accuracy.
package match

import "github.com/nvr-ai/go-tageval/common"

// KeySet is a set of detection keys.
type KeySet map[common.DetectionKey]struct{}

// NewKeySet builds a set from a key sequence, collapsing duplicates.
func NewKeySet(keys []common.DetectionKey) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s KeySet) Has(k common.DetectionKey) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of distinct keys.
func (s KeySet) Len() int {
	return len(s)
}

// Difference returns the keys of s that are not in other.
func (s KeySet) Difference(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the keys ordered by family, then id.
func (s KeySet) Sorted() []common.DetectionKey {
	keys := make([]common.DetectionKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	common.SortKeys(keys)
	return keys
}

// Strings returns the sorted keys in "{family}:{id}" form.
func (s KeySet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, k := range sorted {
		out[i] = k.String()
	}
	return out
}

// Result is the comparison of one detector against ground truth for one image.
type Result struct {
	TruePositives  int
	Missed         KeySet
	FalsePositives KeySet
	// GroundTruthCount is the number of distinct ground truth keys.
	GroundTruthCount int
	// DetectedCount is the number of distinct detected keys.
	DetectedCount int
	// Duplicates is the number of detections collapsed into an already seen key.
	Duplicates int
}

// Match compares detected keys against ground truth keys.
//
// missed = GT - D, falsePositives = D - GT, truePositives = |GT| - |missed|.
func Match(groundTruth, detected []common.DetectionKey) Result {
	gt := NewKeySet(groundTruth)
	det := NewKeySet(detected)

	missed := gt.Difference(det)

	return Result{
		TruePositives:    gt.Len() - missed.Len(),
		Missed:           missed,
		FalsePositives:   det.Difference(gt),
		GroundTruthCount: gt.Len(),
		DetectedCount:    det.Len(),
		Duplicates:       len(detected) - det.Len(),
	}
}
