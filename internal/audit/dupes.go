package audit

import (
	"fmt"
	"sort"
	"strings"
)

// DuplicateGroup is one set of active records sharing a content hash.
type DuplicateGroup struct {
	Hash      string   `json:"hash"`
	SizeBytes int64    `json:"size_bytes"`
	Files     []string `json:"files"`
}

// DuplicateReport is the result of a duplicate analysis over a subtree.
type DuplicateReport struct {
	Root           string
	Groups         []DuplicateGroup
	DuplicateCount int   // extra copies beyond one per group
	WastedBytes    int64 // sum of size × (members − 1) per group
}

// DuplicateAnalyzer runs a read-only pass over the record store and groups
// active records by content hash. It never touches the filesystem or
// mutates the store, so it can run any time, independent of scans.
type DuplicateAnalyzer struct {
	store Store
	// archiveMarker excludes paths that are expected to hold redundant
	// copies by design, e.g. "/Archive/". Empty disables the exclusion.
	archiveMarker string
	logger        Logger
}

// NewDuplicateAnalyzer creates a DuplicateAnalyzer.
func NewDuplicateAnalyzer(store Store, archiveMarker string, logger Logger) *DuplicateAnalyzer {
	return &DuplicateAnalyzer{
		store:         store,
		archiveMarker: archiveMarker,
		logger:        logger,
	}
}

// Analyze groups all active records under root by content hash and keeps
// groups with more than one member after excluding archival paths.
//
// known maps a content hash to a set of previously accepted duplicate
// paths: a group whose member paths are all already accepted for its hash
// is suppressed entirely, so only newly appeared duplicate sets are
// reported.
func (a *DuplicateAnalyzer) Analyze(root string, known map[string][]string) (*DuplicateReport, error) {
	records, err := a.store.DuplicateCandidates(root)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate candidates: %w", err)
	}

	// Records arrive ordered by hash; slice them into runs.
	report := &DuplicateReport{Root: root}
	for start := 0; start < len(records); {
		end := start
		for end < len(records) && records[end].ContentHash == records[start].ContentHash {
			end++
		}
		a.addGroup(report, records[start:end], known)
		start = end
	}

	a.logger.Info("duplicate analysis complete",
		"root", root,
		"groups", len(report.Groups),
		"duplicates", report.DuplicateCount,
		"wasted_bytes", report.WastedBytes,
	)
	return report, nil
}

// addGroup filters one same-hash run of records and appends it to the
// report if it still qualifies as a duplicate group.
func (a *DuplicateAnalyzer) addGroup(report *DuplicateReport, records []*FileRecord, known map[string][]string) {
	var members []*FileRecord
	for _, rec := range records {
		if a.archiveMarker != "" && strings.Contains(rec.Path, a.archiveMarker) {
			continue
		}
		members = append(members, rec)
	}
	if len(members) < 2 {
		return
	}

	hash := members[0].ContentHash
	if accepted, ok := known[hash]; ok && coveredBy(members, accepted) {
		return
	}

	group := DuplicateGroup{
		Hash:      hash,
		SizeBytes: members[0].Size,
	}
	for _, rec := range members {
		group.Files = append(group.Files, rec.Path)
	}
	sort.Strings(group.Files)

	report.Groups = append(report.Groups, group)
	report.DuplicateCount += len(members) - 1
	report.WastedBytes += group.SizeBytes * int64(len(members)-1)
}

// coveredBy reports whether every member path is in the accepted list.
func coveredBy(members []*FileRecord, accepted []string) bool {
	set := make(map[string]bool, len(accepted))
	for _, p := range accepted {
		set[p] = true
	}
	for _, rec := range members {
		if !set[rec.Path] {
			return false
		}
	}
	return true
}
