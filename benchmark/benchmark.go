package benchmark

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SavedFiles lists the files written by SaveResults.
type SavedFiles struct {
	SummaryJSON string
	SummaryCSV  string
}

// SaveResults persists the run summaries as JSON and CSV in outputDir.
func SaveResults(run *Run, outputDir string) (*SavedFiles, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	timestamp := run.StartedAt.Format("2006-01-02_15-04-05")
	files := &SavedFiles{
		SummaryJSON: filepath.Join(outputDir, fmt.Sprintf("summary_%s.json", timestamp)),
		SummaryCSV:  filepath.Join(outputDir, fmt.Sprintf("summary_%s.csv", timestamp)),
	}

	data, err := json.MarshalIndent(run.Summaries, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal summaries")
	}

	if err := os.WriteFile(files.SummaryJSON, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write summary file")
	}

	if err := saveSummaryCSV(files.SummaryCSV, run.Summaries); err != nil {
		return nil, errors.Wrap(err, "failed to save summary CSV")
	}

	return files, nil
}

var csvHeader = []string{
	"Detector", "Ground_Truth", "Detected", "True_Positives", "Missed", "False_Positives",
	"Precision", "Recall", "F1", "Timed_Images", "Avg_Load_ms", "Avg_Detection_ms", "Supported_Families",
}

func saveSummaryCSV(filename string, summaries []Summary) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range summaries {
		row := []string{
			s.Detector,
			strconv.Itoa(s.TotalGroundTruth),
			strconv.Itoa(s.TotalDetected),
			strconv.Itoa(s.TruePositives),
			strconv.Itoa(s.Missed),
			strconv.Itoa(s.FalsePositives),
			fmt.Sprintf("%.4f", s.Precision),
			fmt.Sprintf("%.4f", s.Recall),
			fmt.Sprintf("%.4f", s.F1),
			strconv.Itoa(s.Timing.ImageCount),
			fmt.Sprintf("%.2f", s.Timing.AvgImageLoadMs),
			fmt.Sprintf("%.2f", s.Timing.AvgDetectionMs),
			strings.Join(s.SupportedFamilies, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
