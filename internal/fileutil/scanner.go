// Package fileutil finds generated QA documents on disk.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Pattern is a regex matched against filenames without extension.
	Pattern string
	// Extensions lists the file extensions to include (e.g. ".docx").
	Extensions []string
	// Recursive enables scanning of subdirectories. Hidden directories are
	// always skipped.
	Recursive bool
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the matched paths, sorted.
	Files []string
	// Errors contains non-fatal errors encountered during scanning
	Errors []error
}

// ScanDirectory scans a directory for files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var pattern *regexp.Regexp
	if opts.Pattern != "" {
		pattern, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	exts := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}

	result := &ScanResult{Files: make([]string, 0)}
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		// temp files left by an interrupted write
		if strings.HasPrefix(name, ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if len(exts) > 0 && !exts[ext] {
			return nil
		}
		if pattern != nil && !pattern.MatchString(strings.TrimSuffix(name, filepath.Ext(name))) {
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// documentPattern matches "<Project>_Test_Plan" and "<Project>_Test_Cases".
const documentPattern = `_Test_(Plan|Cases)$`

// FindDocuments returns the generated .docx and .xlsx documents in dir.
func FindDocuments(dir string, recursive bool) ([]string, error) {
	res, err := ScanDirectory(dir, ScanOptions{
		Pattern:    documentPattern,
		Extensions: []string{".docx", ".xlsx"},
		Recursive:  recursive,
	})
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// ExpandDocuments replaces each directory in paths with the documents it
// contains. Files are kept as given, even if they do not exist yet.
func ExpandDocuments(paths []string, recursive bool) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		docs, err := FindDocuments(p, recursive)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no generated documents (*_Test_Plan.docx, *_Test_Cases.xlsx) in %s", p)
		}
		out = append(out, docs...)
	}
	return out, nil
}
