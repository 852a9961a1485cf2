// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"

	"github.com/Mtzions/Agentbackend/internal/core/run"
	"github.com/hay-kot/criterio"
)

// TaskTitle validates a task title is non-empty after trimming whitespace.
func TaskTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// TaskTitleField returns a criterio validator for task titles.
func TaskTitleField(field, title string) error {
	return criterio.Run(field, title, TaskTitle)
}

// ResultStatus validates the status field of an agent result callback.
// The field is required and must name a known run status.
func ResultStatus(status string) error {
	if status == "" {
		return fmt.Errorf("status is required")
	}
	if !run.Status(status).Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	return nil
}

// ResultStatusField returns a criterio validator for agent result statuses.
func ResultStatusField(field, status string) error {
	return criterio.Run(field, status, ResultStatus)
}
