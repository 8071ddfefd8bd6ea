package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/options-harvester/internal/ingest"
)

// FormatSuccessMessage creates a success notification body.
func FormatSuccessMessage(result *ingest.Result, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Symbols: %d\n", result.Symbols))
	sb.WriteString(fmt.Sprintf("Contracts: %d\n", result.Contracts))
	sb.WriteString(fmt.Sprintf("Persisted: %d\n", result.Persisted))
	sb.WriteString(fmt.Sprintf("Filtered: %d\n", result.Filtered))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(result *ingest.Result, duration time.Duration, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Symbols: %d\n", result.Symbols))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", result.Skipped))
	sb.WriteString(fmt.Sprintf("Contracts: %d\n", result.Contracts))
	sb.WriteString(fmt.Sprintf("Persisted: %d\n", result.Persisted))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	if err != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", err))
	}

	return sb.String()
}
