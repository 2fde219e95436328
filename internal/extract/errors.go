package extract

import "fmt"

// ExtractionError reports an upstream failure: endpoint unreachable,
// non-success status, or a fan-out whose failure rate crossed the
// configured threshold. The task graph may retry it.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s failed: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the task graph should retry the node.
func (e *ExtractionError) Retryable() bool {
	return true
}

// SchemaError reports records rejected for missing required fields.
// Individual records are dropped and counted where they occur; the error
// reaches batch level only when every record drops, and retrying cannot
// fix it.
type SchemaError struct {
	Source  string
	Dropped int
	Detail  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation of %s dropped %d records: %s", e.Source, e.Dropped, e.Detail)
}

// Retryable reports whether the task graph should retry the node.
func (e *SchemaError) Retryable() bool {
	return false
}
