package ir

import (
	"fmt"
	"strings"
)

// Sources of created resources.
const (
	SourceAWS       = "AWS"
	SourceSerpWow   = "SerpWow"
	SourceSnowflake = "Snowflake"
)

// Types of created resources.
const (
	TypeBucket             = "S3 Bucket"
	TypeIAMUser            = "IAM User"
	TypeIAMPolicy          = "IAM Policy"
	TypeIAMRole            = "IAM Role"
	TypeDestination        = "Destination"
	TypeStorageIntegration = "Storage Integration"
	TypeTable              = "Table"
	TypeStage              = "Stage"
	TypePipe               = "Pipe"
)

// ResourceRecord identifies one externally created, billable resource.
type ResourceRecord struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	ID     string `json:"id"`
}

func (r ResourceRecord) String() string {
	return fmt.Sprintf("%s %s %s", r.Source, r.Type, r.ID)
}

// Ledger returns a copy of the resources created so far, in creation order.
func (s *ProvisioningState) Ledger() []ResourceRecord {
	if s == nil || len(s.CreatedResources) == 0 {
		return nil
	}
	out := make([]ResourceRecord, len(s.CreatedResources))
	copy(out, s.CreatedResources)
	return out
}

// WithResource returns a copy of s with rec appended to the ledger.
func (s *ProvisioningState) WithResource(rec ResourceRecord) *ProvisioningState {
	next := s.Clone()
	next.CreatedResources = append(next.CreatedResources, rec)
	return next
}

// FormatLedger renders records one per line as "<source> <type> <id>".
func FormatLedger(records []ResourceRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// IncompleteCreateError reports a resource that was created even though
// the call that created it failed afterwards. The resource is not in the
// ledger and must be removed by hand before the stage is retried.
type IncompleteCreateError struct {
	Resource ResourceRecord
	Err      error
}

func (e *IncompleteCreateError) Error() string {
	return fmt.Sprintf("%s was created but could not be completed: %v", e.Resource, e.Err)
}

func (e *IncompleteCreateError) Unwrap() error { return e.Err }
