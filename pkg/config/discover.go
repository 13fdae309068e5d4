package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// recordExtensions are the file types the loaders understand.
var recordExtensions = map[string]bool{
	".json":    true,
	".jsonl":   true,
	".ndjson":  true,
	".yaml":    true,
	".yml":     true,
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// IsRecordFile reports whether a path has a record file extension.
func IsRecordFile(path string) bool {
	return recordExtensions[strings.ToLower(filepath.Ext(path))]
}

// DiscoverSources scans the configured paths for record files. Explicitly
// configured sources come first; discovered files follow in lexical order,
// skipping any already configured.
func DiscoverSources(cfg Config) []SourceConfig {
	seen := make(map[string]bool)
	var result []SourceConfig

	for _, s := range cfg.Sources {
		seen[filepath.Clean(expandHome(s.Location))] = true
		result = append(result, s)
	}

	maxDepth := cfg.Discovery.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	exclude := cfg.Discovery.Exclude
	if len(exclude) == 0 {
		exclude = DefaultExcludePatterns()
	}

	for _, scanPath := range cfg.Discovery.ScanPaths {
		for _, f := range scanForRecords(scanPath, maxDepth, exclude) {
			if !seen[f] {
				seen[f] = true
				result = append(result, SourceConfig{
					Name:     filepath.Base(f),
					Location: f,
				})
			}
		}
	}

	return result
}

// scanForRecords walks a directory tree up to maxDepth levels deep, looking
// for record files.
func scanForRecords(root string, maxDepth int, exclude []string) []string {
	root = filepath.Clean(expandHome(root))
	var results []string

	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	rootDepth := strings.Count(root, string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if currentDepth >= maxDepth {
				return filepath.SkipDir
			}
			// Skip hidden directories, the config dir included
			name := d.Name()
			if strings.HasPrefix(name, ".") || skip[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || !IsRecordFile(path) {
			return nil
		}
		results = append(results, path)
		return nil
	})

	sort.Strings(results)
	return results
}
