package audithook

// Action constants for audit events.
const (
	// Collection actions
	ActionCollectionCreated = "collection.created"
	ActionCapTransferred    = "cap.transferred"
	ActionMetadataSet       = "metadata.set"

	// Token actions
	ActionTokenMinted      = "token.minted"
	ActionTokenBurned      = "token.burned"
	ActionTokenTransferred = "token.transferred"
)

// Resource constants for audit events.
const (
	ResourceCollection = "collection"
	ResourceCap        = "cap"
	ResourceMetadata   = "metadata"
	ResourceToken      = "token"
)

// Category constants for audit events.
const (
	CategoryGovernance = "governance"
	CategoryLedger     = "ledger"
)

// Severity constants for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
