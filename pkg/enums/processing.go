package enums

// ProcessingStatus tracks the lifecycle of a processing claim for one event.
type ProcessingStatus string

const (
	ProcessingStatusInProgress ProcessingStatus = "in_progress"
	ProcessingStatusDone       ProcessingStatus = "done"
)

// IsValid reports whether the status is recognized.
func (s ProcessingStatus) IsValid() bool {
	return s == ProcessingStatusInProgress || s == ProcessingStatusDone
}

// ProcessingOutcome records how a fully processed event terminated.
type ProcessingOutcome string

const (
	ProcessingOutcomeSucceeded ProcessingOutcome = "succeeded"
	ProcessingOutcomeFailed    ProcessingOutcome = "failed"
	ProcessingOutcomeSkipped   ProcessingOutcome = "skipped"
)

var validProcessingOutcomes = []ProcessingOutcome{
	ProcessingOutcomeSucceeded,
	ProcessingOutcomeFailed,
	ProcessingOutcomeSkipped,
}

// IsValid reports whether the outcome is recognized.
func (o ProcessingOutcome) IsValid() bool {
	for _, candidate := range validProcessingOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}
