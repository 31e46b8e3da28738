// Package bigquery persists uploads and transactions in BigQuery.
//
// Package-level functions create a throwaway client per call; the WithClient
// variants reuse a caller-owned one. Store bundles the WithClient variants
// behind the pipeline interfaces with a single shared client.
package bigquery

import "os"

const (
	defaultDatasetID = "spendmap"

	uploadsTable      = "uploads"
	transactionsTable = "transactions"
)

// ProjectID returns the GCP project from GOOGLE_CLOUD_PROJECT.
func ProjectID() string {
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

// DatasetID returns the dataset from SPENDMAP_DATASET, defaulting to
// "spendmap".
func DatasetID() string {
	if ds := os.Getenv("SPENDMAP_DATASET"); ds != "" {
		return ds
	}
	return defaultDatasetID
}
