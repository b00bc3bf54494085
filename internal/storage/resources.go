package storage

import (
	"fmt"

	"github.com/Epistemic-Technology/casebrief/models"
)

// ResourceScheme prefixes every run resource URI.
const ResourceScheme = "summary://"

// CalculateResourcePaths generates all available resource URIs for a stored run.
func CalculateResourcePaths(run *models.Run) []string {
	resourcePaths := []string{
		fmt.Sprintf("%s%s", ResourceScheme, run.RunID),
		fmt.Sprintf("%s%s/records", ResourceScheme, run.RunID),
	}

	if run.MemoryLog != "" {
		resourcePaths = append(resourcePaths, fmt.Sprintf("%s%s/memory-log", ResourceScheme, run.RunID))
	}

	if len(run.Batches) > 0 {
		resourcePaths = append(resourcePaths, fmt.Sprintf("%s%s/batches", ResourceScheme, run.RunID))
	}

	return resourcePaths
}
