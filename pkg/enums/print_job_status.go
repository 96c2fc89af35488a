package enums

import "fmt"

// PrintJobStatus tracks a submitted print job through the shop.
type PrintJobStatus string

const (
	PrintJobStatusPending   PrintJobStatus = "Pending"
	PrintJobStatusPrinting  PrintJobStatus = "Printing"
	PrintJobStatusReady     PrintJobStatus = "Ready"
	PrintJobStatusCollected PrintJobStatus = "Collected"
	PrintJobStatusCancelled PrintJobStatus = "Cancelled"
)

var validPrintJobStatuses = []PrintJobStatus{
	PrintJobStatusPending,
	PrintJobStatusPrinting,
	PrintJobStatusReady,
	PrintJobStatusCollected,
	PrintJobStatusCancelled,
}

// String implements fmt.Stringer.
func (s PrintJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PrintJobStatus.
func (s PrintJobStatus) IsValid() bool {
	for _, candidate := range validPrintJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job can no longer change status.
func (s PrintJobStatus) IsTerminal() bool {
	return s == PrintJobStatusCollected || s == PrintJobStatusCancelled
}

// ParsePrintJobStatus converts raw input into a PrintJobStatus.
func ParsePrintJobStatus(value string) (PrintJobStatus, error) {
	for _, candidate := range validPrintJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid print job status %q", value)
}
