package buildcache

import (
	"slices"
)

// sortRecords sorts records by build id, ULIDs are ordered by creation time.
func sortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return a.BuildID.Compare(b.BuildID)
	})
}
