// Package loader - Reads detection files and manifests without ever aborting a run on one bad file.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-tageval/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

var (
	// ErrNotFound is returned by ReadDetectionFile when the file does not exist.
	ErrNotFound = errors.New("detection file not found")
	// ErrNoGroundTruth is returned when a dataset has no ground-truth files at all.
	ErrNoGroundTruth = errors.New("no ground truth files found")
)

// ParseError reports a detection file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed detection file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Status describes the outcome of loading one detection file.
type Status string

const (
	StatusLoaded    Status = "loaded"
	StatusMissing   Status = "missing"
	StatusMalformed Status = "malformed"
)

// Result is the outcome of LoadDetectionFile. File is always usable.
type Result struct {
	File   common.DetectionFile
	Status Status
	Err    error
}

// Loaded reports whether the file was read and decoded.
func (r Result) Loaded() bool {
	return r.Status == StatusLoaded
}

// ReadDetectionFile reads and decodes a detection file.
//
// Arguments:
// - path: Path of the JSON detection file.
//
// Returns:
// - *common.DetectionFile: The decoded file.
// - error: ErrNotFound (match with errors.Is) when the file is absent, *ParseError when it is malformed.
func ReadDetectionFile(path string) (*common.DetectionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, errors.Wrapf(err, "failed to read detection file %s", path)
	}

	var file common.DetectionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if file.Image == "" {
		file.Image = stem(path)
	}
	if file.Detections == nil {
		file.Detections = []common.Detection{}
	}

	return &file, nil
}

// LoadDetectionFile loads a detection file, converting every failure into a
// default result with zero detections and no timings.
//
// Missing and malformed files are distinguished by Status only; both are
// treated as "no detections" by the comparison.
func LoadDetectionFile(path string) Result {
	file, err := ReadDetectionFile(path)
	if err == nil {
		return Result{File: *file, Status: StatusLoaded}
	}

	status := StatusMalformed
	if errors.Is(err, ErrNotFound) {
		status = StatusMissing
	}

	return Result{
		File: common.DetectionFile{
			Image:      stem(path),
			Detections: []common.Detection{},
			Timings:    common.NoTimings(),
		},
		Status: status,
		Err:    err,
	}
}

// LoadManifest reads a detector manifest. The second return value is false
// when the manifest is absent or invalid.
func LoadManifest(path string) (common.Manifest, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.Manifest{}, false
	}

	var manifest common.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return common.Manifest{}, false
	}

	if err := validate.Struct(manifest); err != nil {
		return common.Manifest{}, false
	}

	return manifest, true
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
