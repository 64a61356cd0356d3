package models

// AcquisitionStatus tags an [AcquisitionResult].
type AcquisitionStatus string

const (
	AcquisitionSucceeded AcquisitionStatus = "succeeded"
	AcquisitionFailed    AcquisitionStatus = "failed"
)

// AcquisitionResult is the outcome of acquiring a single track.
//
// Exactly one is produced per track, in catalog order. Path and ResolvedTitle are set on success; Reason on failure.
type AcquisitionResult struct {
	Index         int               `json:"index"`
	Query         string            `json:"query"`
	Status        AcquisitionStatus `json:"status"`
	Path          string            `json:"path,omitempty"`
	ResolvedTitle string            `json:"resolved_title,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(index int, query, path, resolvedTitle string) AcquisitionResult {
	return AcquisitionResult{
		Index:         index,
		Query:         query,
		Status:        AcquisitionSucceeded,
		Path:          path,
		ResolvedTitle: resolvedTitle,
	}
}

// Failed builds a failed result carrying a human-readable reason.
func Failed(index int, query, reason string) AcquisitionResult {
	return AcquisitionResult{Index: index, Query: query, Status: AcquisitionFailed, Reason: reason}
}

func (r AcquisitionResult) OK() bool {
	return r.Status == AcquisitionSucceeded
}
