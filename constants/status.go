package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusOK      JobStatus = "OK"      // document extracted
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
