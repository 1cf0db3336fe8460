package fsops

// Batch operation names.
const (
	OpUpload = "upload"
	OpDelete = "delete"
)

// BatchResult collects per-unit outcomes of a multi-unit operation.
type BatchResult struct {
	Op        string        `json:"op"`
	Succeeded int           `json:"succeeded"`
	Files     []FileResult  `json:"files,omitempty"`
	Markers   []string      `json:"markers,omitempty"`
	Deleted   []string      `json:"deleted,omitempty"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Failed returns the number of failed units.
func (r *BatchResult) Failed() int { return len(r.Failures) }

// Err returns nil for a clean batch. A batch of exactly one unit that
// failed returns that unit's error; any other failure is reported as a
// *PartialBatchFailure.
func (r *BatchResult) Err() error {
	switch {
	case len(r.Failures) == 0:
		return nil
	case r.Succeeded == 0 && len(r.Failures) == 1 && r.Failures[0].Err != nil:
		return r.Failures[0].Err
	default:
		return &PartialBatchFailure{Op: r.Op, Succeeded: r.Succeeded, Failures: r.Failures}
	}
}

// Fail records a failed unit for key.
func (r *BatchResult) Fail(key string, err error) {
	r.Failures = append(r.Failures, ItemFailure{Key: key, Code: Classify(err), Message: err.Error(), Err: err})
}
