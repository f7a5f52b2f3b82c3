// Package common - Shared data model for tag detections, ground truth and detector manifests.
package common

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// KnownFamilies lists the AprilTag families emitted by the reference detectors.
var KnownFamilies = []string{
	"tag16h5",
	"tag25h9",
	"tag36h10",
	"tag36h11",
	"tagCircle21h7",
	"tagCircle49h12",
	"tagCustom48h12",
	"tagStandard41h12",
	"tagStandard52h13",
}

// IsKnownFamily reports whether family is one of KnownFamilies. Unknown
// families are still matched like any other.
func IsKnownFamily(family string) bool {
	return slices.Contains(KnownFamilies, family)
}

// Corner is a sub-pixel image point.
//
// Detectors emit corners counter-clockwise starting bottom-left
// (bottom-left, bottom-right, top-right, top-left). The order is not validated.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single decoded tag as reported by a detector or ground truth.
type Detection struct {
	TagID     int      `json:"tag_id"`
	TagFamily string   `json:"tag_family"`
	Corners   []Corner `json:"corners"`
}

// Key returns the matching identity of the detection.
func (d Detection) Key() DetectionKey {
	return DetectionKey{Family: d.TagFamily, ID: d.TagID}
}

// DetectionKey identifies a tag by family and id. Corners never take part in matching.
type DetectionKey struct {
	Family string
	ID     int
}

// String renders the key as "{family}:{id}".
func (k DetectionKey) String() string {
	return fmt.Sprintf("%s:%d", k.Family, k.ID)
}

// ParseKey parses the "{family}:{id}" form produced by DetectionKey.String.
//
// Arguments:
// - s: The string form of a key.
//
// Returns:
// - The parsed key.
// - An error if the id part is missing or not an integer.
//
// @example
// key, _ := ParseKey("tag36h11:7") // DetectionKey{Family: "tag36h11", ID: 7}
func ParseKey(s string) (DetectionKey, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return DetectionKey{}, errors.Errorf("invalid detection key %q: missing ':'", s)
	}

	id, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return DetectionKey{}, errors.Wrapf(err, "invalid detection key %q", s)
	}

	return DetectionKey{Family: s[:idx], ID: id}, nil
}

// CompareKeys orders keys by family name, then numerically by id.
func CompareKeys(a, b DetectionKey) int {
	if c := strings.Compare(a.Family, b.Family); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortKeys sorts keys in place using CompareKeys.
func SortKeys(keys []DetectionKey) {
	slices.SortFunc(keys, CompareKeys)
}

// FamilyTiming is the per-family cost reported by a detector for one image.
type FamilyTiming struct {
	Family           string  `json:"family"`
	InitializationMs float64 `json:"initialization_ms"`
	DetectionMs      float64 `json:"detection_ms"`
}

// Timings is the timing block a detector may attach to its output.
type Timings struct {
	ImageLoadMs      float64        `json:"image_load_ms"`
	TotalDetectionMs float64        `json:"total_detection_ms"`
	FamilyTimings    []FamilyTiming `json:"family_timings"`
}

// DetectionFile is the content of one detection file: ground truth or one
// detector's output for a single image.
type DetectionFile struct {
	Image      string          `json:"image"`
	Detections []Detection     `json:"detections"`
	Timings    OptionalTimings `json:"timings"`
}

// Keys returns the key of every detection in file order. Duplicates are kept.
func (f *DetectionFile) Keys() []DetectionKey {
	keys := make([]DetectionKey, 0, len(f.Detections))
	for _, d := range f.Detections {
		keys = append(keys, d.Key())
	}
	return keys
}

// Manifest is the optional manifest.json written once per detector.
type Manifest struct {
	SupportedFamilies []string `json:"supported_families" yaml:"supported_families" validate:"dive,required"`
}

// Supports reports whether the manifest declares the family.
func (m Manifest) Supports(family string) bool {
	return slices.Contains(m.SupportedFamilies, family)
}
