package sync

import "context"

// Result is the immutable outcome of one entity sync call.
type Result struct {
	Success          bool     `json:"success"`
	DataType         Entity   `json:"data_type"`
	RecordsProcessed int      `json:"records_processed"`
	RecordsAdded     int      `json:"records_added"`
	RecordsUpdated   int      `json:"records_updated"`
	RecordsSkipped   int      `json:"records_skipped"`
	RecordsDeleted   int      `json:"records_deleted"`
	Errors           []string `json:"errors,omitempty"`
	DurationSeconds  float64  `json:"duration_seconds"`
}

// Outcome is the terminal state of one entity sync as consumed by
// notification dispatchers. It is either a Success or a Failure.
type Outcome interface{ isOutcome() }

// Success wraps the result of an entity sync that completed.
type Success struct {
	Result Result `json:"result"`
}

// Failure describes an entity sync that failed or was skipped.
type Failure struct {
	Entity          Entity   `json:"entity"`
	Errors          []string `json:"errors"`
	DurationSeconds float64  `json:"duration_seconds"`
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Report is handed to the notification dispatcher after a multi-entity run.
type Report struct {
	Environment string             `json:"environment"`
	Outcomes    map[Entity]Outcome `json:"outcomes"`
}

// Notifier receives the report of a completed run. Rendering is up to the
// implementation.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

func outcomeOf(res Result) Outcome {
	if res.Success {
		return Success{Result: res}
	}
	return Failure{Entity: res.DataType, Errors: res.Errors, DurationSeconds: res.DurationSeconds}
}
