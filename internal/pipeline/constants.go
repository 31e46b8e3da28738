package pipeline

const (
	// DefaultBatchSize bounds how many transactions travel in one insert
	// request against the store.
	DefaultBatchSize = 250
)
