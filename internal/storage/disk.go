package storage

import (
	"os"
	"path/filepath"
	"sort"
)

// Usage is the on-disk footprint of one named artifact (model, label list, database).
type Usage struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
	Missing bool   `json:"missing,omitempty"`
}

// ArtifactUsage sizes each named path, sorted by name, and returns the total.
// A path may be a file or a directory (recursively summed). Missing paths are
// reported with Missing set; empty paths are skipped.
func ArtifactUsage(artifacts map[string]string) ([]Usage, int64, error) {
	names := make([]string, 0, len(artifacts))
	for name, p := range artifacts {
		if p != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var total int64
	out := make([]Usage, 0, len(names))
	for _, name := range names {
		p := artifacts[name]
		n, err := pathSize(p)
		if os.IsNotExist(err) {
			out = append(out, Usage{Name: name, Path: p, Missing: true})
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, Usage{Name: name, Path: p, Bytes: n})
		total += n
	}
	return out, total, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
