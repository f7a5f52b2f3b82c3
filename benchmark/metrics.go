// Package benchmark - Aggregation of per-image match results into per-detector accuracy and timing summaries.
package benchmark

// Summary captures the accuracy and timing of one detector across the dataset.
type Summary struct {
	Detector          string   `json:"detector"`
	SupportedFamilies []string `json:"supported_families"`

	TotalGroundTruth int     `json:"total_ground_truth"`
	TotalDetected    int     `json:"total_detected"`
	TruePositives    int     `json:"true_positives"`
	Missed           int     `json:"missed"`
	FalsePositives   int     `json:"false_positives"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1"`

	MissedByFamily         map[string]int `json:"missed_by_family"`
	FalsePositivesByFamily map[string]int `json:"false_positives_by_family"`
	TruePositivesByFamily  map[string]int `json:"true_positives_by_family"`
	// MissedUnsupported counts missed tags of a family the detector's manifest does not declare.
	MissedUnsupported int `json:"missed_unsupported"`
	// Duplicates counts repeated detections of a key within one image.
	Duplicates int `json:"duplicates"`

	ImagesEvaluated int `json:"images_evaluated"`
	ImagesMissing   int `json:"images_missing"`
	ImagesMalformed int `json:"images_malformed"`

	Timing TimingSummary `json:"timing"`
}

// TimingSummary captures detector-reported timings across the images that carried them.
type TimingSummary struct {
	ImageCount       int                   `json:"image_count"`
	// SkippedImages counts timed images left out because their values would overflow the totals.
	SkippedImages    int                   `json:"skipped_images"`
	TotalImageLoadMs float64               `json:"total_image_load_ms"`
	AvgImageLoadMs   float64               `json:"avg_image_load_ms"`
	TotalDetectionMs float64               `json:"total_detection_ms"`
	AvgDetectionMs   float64               `json:"avg_detection_ms"`
	Families         []FamilyTimingSummary `json:"families"`
}

// FamilyTimingSummary captures per-family initialization and detection cost.
type FamilyTimingSummary struct {
	Family                string  `json:"family"`
	Count                 int     `json:"count"`
	TotalInitializationMs float64 `json:"total_initialization_ms"`
	TotalDetectionMs      float64 `json:"total_detection_ms"`
	AvgInitializationMs   float64 `json:"avg_initialization_ms"`
	AvgDetectionMs        float64 `json:"avg_detection_ms"`
}

// ratio divides, returning 0 when the denominator is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// f1Score is the harmonic mean of precision and recall, 0 when both are 0.
func f1Score(precision, recall float64) float64 {
	return ratio(2*precision*recall, precision+recall)
}
