package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ManifestName is the per-detector manifest file, never treated as a detection file.
const ManifestName = "manifest.json"

// DetectionFileRef represents a discovered detection file.
type DetectionFileRef struct {
	// Path is the path to the detection file.
	Path string
	// Stem is the file name without the .json extension, shared with the image it describes.
	Stem string
}

// ListDetectionFiles lists the detection files of a directory, non-recursively.
//
// A directory that does not exist yields an empty list, not an error.
//
// Arguments:
// - dir: Directory path containing <stem>.json detection files.
//
// Returns:
// - []DetectionFileRef: The files sorted by stem, then path. Stems may repeat (x.json, x.JSON).
// - error: Error if the directory exists but cannot be read.
func ListDetectionFiles(dir string) ([]DetectionFileRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var files []DetectionFileRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if name == ManifestName || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}

		files = append(files, DetectionFileRef{
			Path: filepath.Join(dir, name),
			Stem: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Stem != files[j].Stem {
			return files[i].Stem < files[j].Stem
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// ListDetectorDirs returns the names of the sub-directories of root, sorted.
// Each sub-directory holds the output of one detector.
func ListDetectorDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read directory %s", root)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}
