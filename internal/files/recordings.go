package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
)

// Recording describes a media file written by a session.
type Recording struct {
	// Path is the absolute path to the file
	Path string

	// Name is the filename (without directory)
	Name string

	// Size is the file size in bytes
	Size int64

	// Type is the MIME type guessed from the extension
	Type string
}

// PrepareRecordDir resolves dir to an absolute path, creating it if needed,
// and checks that files can be written into it.
func PrepareRecordDir(dir string) (string, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%s: failed to get absolute path: %w", dir, err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return "", fmt.Errorf("%s: cannot create directory: %w", dir, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to stat directory: %w", dir, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("%s: not a directory", dir)
	}

	// Check the directory is writable
	probe, err := os.CreateTemp(absPath, ".probe-*")
	if err != nil {
		return "", fmt.Errorf("%s: directory is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return absPath, nil
}

// ListRecordings returns the recordings at paths that exist and are non-empty,
// sorted by name.
func ListRecordings(paths []string) []Recording {
	var out []Recording
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil || stat.IsDir() || stat.Size() == 0 {
			continue
		}

		mimeType := mimeByExt[filepath.Ext(path)]
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(path))
		}
		if mimeType == "" {
			// Default to binary if unknown
			mimeType = "application/octet-stream"
		}

		out = append(out, Recording{
			Path: path,
			Name: filepath.Base(path),
			Size: stat.Size(),
			Type: mimeType,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var mimeByExt = map[string]string{
	".ivf": "video/x-ivf",
	".ogg": "audio/ogg",
}

// TotalSize returns the combined size of recordings
func TotalSize(recs []Recording) int64 {
	var total int64
	for _, r := range recs {
		total += r.Size
	}
	return total
}
