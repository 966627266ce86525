package service

import (
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
)

// Filter maps a raw parse result to its terminal form:
//   - absent activities pass through unchanged
//   - any nil activity discards the whole document with status 6
//   - an empty sequence becomes absent, with status 5 unless a status is
//     already set
func Filter(result implementation.Result) implementation.Result {
	if result.Activities == nil {
		return result
	}

	for _, a := range result.Activities {
		if a == nil {
			return implementation.Result{Status: importerr.StatusInvalidActivity}
		}
	}

	if len(result.Activities) == 0 {
		status := result.Status
		if status == importerr.StatusOK {
			status = importerr.StatusNoActivities
		}
		return implementation.Result{Status: status}
	}
	return result
}
