package constants

// State is the lifecycle state of one document moving through the pipeline.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateExtracting State = "EXTRACTING"
	StateEnriching  State = "ENRICHING" // skipped when no credential is configured
	StateCompleted  State = "COMPLETED" // enrichment may still be absent
	StateFailed     State = "FAILED"    // extraction failed; terminal
)
