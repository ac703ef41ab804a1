// Package audithook bridges TokenLedger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/hook"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Compile-time interface checks.
var (
	_ hook.Hook                = (*Extension)(nil)
	_ hook.OnCollectionCreated = (*Extension)(nil)
	_ hook.OnCapTransferred    = (*Extension)(nil)
	_ hook.OnMetadataSet       = (*Extension)(nil)
	_ hook.OnMint              = (*Extension)(nil)
	_ hook.OnBurn              = (*Extension)(nil)
	_ hook.OnTransfer          = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Collection lifecycle hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements hook.OnCollectionCreated.
func (e *Extension) OnCollectionCreated(ctx context.Context, col *collection.Collection, cap *collection.Cap) error {
	return e.record(ctx, ActionCollectionCreated, SeverityInfo, OutcomeSuccess,
		ResourceCollection, col.ID.String(), CategoryGovernance, nil,
		"cap_id", cap.ID.String(),
		"holder", cap.Holder,
	)
}

// OnCapTransferred implements hook.OnCapTransferred.
func (e *Extension) OnCapTransferred(ctx context.Context, cap *collection.Cap) error {
	return e.record(ctx, ActionCapTransferred, SeverityWarning, OutcomeSuccess,
		ResourceCap, cap.ID.String(), CategoryGovernance, nil,
		"collection_id", cap.Collection.String(),
		"holder", cap.Holder,
	)
}

// OnMetadataSet implements hook.OnMetadataSet.
func (e *Extension) OnMetadataSet(ctx context.Context, collectionID id.ID, tok token.ID, size int) error {
	return e.record(ctx, ActionMetadataSet, SeverityInfo, OutcomeSuccess,
		ResourceMetadata, tok.String(), CategoryGovernance, nil,
		"collection_id", collectionID.String(),
		"size", size,
	)
}

// ──────────────────────────────────────────────────
// Ledger audit hooks
// ──────────────────────────────────────────────────

// OnMint implements hook.OnMint.
func (e *Extension) OnMint(ctx context.Context, ev *event.Event) error {
	return e.record(ctx, ActionTokenMinted, SeverityInfo, OutcomeSuccess,
		ResourceToken, ev.Token.String(), CategoryLedger, nil,
		"collection_id", ev.Collection.String(),
		"to", ev.To,
		"amount", ev.Amount,
		"seq", ev.Seq,
	)
}

// OnBurn implements hook.OnBurn.
func (e *Extension) OnBurn(ctx context.Context, ev *event.Event) error {
	return e.record(ctx, ActionTokenBurned, SeverityInfo, OutcomeSuccess,
		ResourceToken, ev.Token.String(), CategoryLedger, nil,
		"collection_id", ev.Collection.String(),
		"from", ev.From,
		"amount", ev.Amount,
		"seq", ev.Seq,
	)
}

// OnTransfer implements hook.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, ev *event.Event) error {
	return e.record(ctx, ActionTokenTransferred, SeverityInfo, OutcomeSuccess,
		ResourceToken, ev.Token.String(), CategoryLedger, nil,
		"collection_id", ev.Collection.String(),
		"from", ev.From,
		"to", ev.To,
		"amount", ev.Amount,
		"seq", ev.Seq,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
