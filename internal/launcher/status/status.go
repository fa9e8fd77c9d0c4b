// Package status defines the launcher-independent job status taxonomy.
// Every workload manager maps its raw state codes onto these values.
package status

// Status is the normalized state of a launched step.
type Status string

const (
	// New marks a step that has been submitted but not yet started.
	New Status = "New"
	// Paused marks a step held or queued by the workload manager.
	Paused Status = "Paused"
	// Running marks a step currently executing.
	Running Status = "Running"
	// Completed marks a step that finished with a zero exit code.
	Completed Status = "Completed"
	// Cancelled marks a step stopped by the user or the workload manager.
	Cancelled Status = "Cancelled"
	// Failed marks a step that finished unsuccessfully.
	Failed Status = "Failed"
)

// Terminal reports whether a step in this state will never change state
// again.
func Terminal(s Status) bool {
	switch s {
	case Completed, Cancelled, Failed:
		return true
	}
	return false
}
