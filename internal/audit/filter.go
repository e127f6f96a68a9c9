package audit

import (
	"path/filepath"
	"strings"
)

// Filter decides whether a path is excluded from a scan. It is a pure
// predicate over the path string: no I/O, no side effects.
//
// Two rules apply in order, either of which excludes independently:
//  1. substring rule: any path containing one of the configured
//     substrings (case-insensitively) is excluded;
//  2. extension rule: if an allow-list of extensions is configured,
//     any path whose extension is not in the list is excluded.
type Filter struct {
	substrings []string
	extensions map[string]bool
}

// NewFilter builds a Filter. Substrings are matched case-insensitively;
// extensions are normalized to lowercase and should include the leading dot.
func NewFilter(substrings, extensions []string) *Filter {
	f := &Filter{}
	for _, s := range substrings {
		if s == "" {
			continue
		}
		f.substrings = append(f.substrings, strings.ToLower(s))
	}
	if len(extensions) > 0 {
		f.extensions = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			if ext == "" {
				continue
			}
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.extensions[ext] = true
		}
	}
	return f
}

// Exclude reports whether the given path should be skipped.
func (f *Filter) Exclude(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range f.substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	if len(f.extensions) > 0 {
		if !f.extensions[strings.ToLower(filepath.Ext(path))] {
			return true
		}
	}
	return false
}
