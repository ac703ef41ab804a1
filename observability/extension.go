// Package observability provides a metrics extension for TokenLedger that
// records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tokenledger/collection"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/hook"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/token"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                = (*MetricsExtension)(nil)
	_ hook.OnInit              = (*MetricsExtension)(nil)
	_ hook.OnCollectionCreated = (*MetricsExtension)(nil)
	_ hook.OnCapTransferred    = (*MetricsExtension)(nil)
	_ hook.OnMetadataSet       = (*MetricsExtension)(nil)
	_ hook.OnMint              = (*MetricsExtension)(nil)
	_ hook.OnBurn              = (*MetricsExtension)(nil)
	_ hook.OnTransfer          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger hook to automatically track token activity.
type MetricsExtension struct {
	factory MetricFactory

	// Collection metrics
	CollectionsCreated Counter
	CapsTransferred    Counter
	MetadataWrites     Counter
	MetadataSize       Histogram

	// Ledger metrics
	Mints         Counter
	MintedAmount  Counter
	Burns         Counter
	BurnedAmount  Counter
	Transfers     Counter
	TransferValue Histogram

	// Error metrics
	StoreErrors Counter
	HookErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Collection metrics
		CollectionsCreated: factory.Counter("tokenledger.collection.created"),
		CapsTransferred:    factory.Counter("tokenledger.cap.transferred"),
		MetadataWrites:     factory.Counter("tokenledger.metadata.writes"),
		MetadataSize:       factory.Histogram("tokenledger.metadata.size_bytes"),

		// Ledger metrics
		Mints:         factory.Counter("tokenledger.mint.count"),
		MintedAmount:  factory.Counter("tokenledger.mint.amount"),
		Burns:         factory.Counter("tokenledger.burn.count"),
		BurnedAmount:  factory.Counter("tokenledger.burn.amount"),
		Transfers:     factory.Counter("tokenledger.transfer.count"),
		TransferValue: factory.Histogram("tokenledger.transfer.amount"),

		// Error metrics
		StoreErrors: factory.Counter("tokenledger.store.errors"),
		HookErrors:  factory.Counter("tokenledger.hook.errors"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Collection lifecycle hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements hook.OnCollectionCreated.
func (m *MetricsExtension) OnCollectionCreated(_ context.Context, _ *collection.Collection, _ *collection.Cap) error {
	m.CollectionsCreated.Inc()
	return nil
}

// OnCapTransferred implements hook.OnCapTransferred.
func (m *MetricsExtension) OnCapTransferred(_ context.Context, _ *collection.Cap) error {
	m.CapsTransferred.Inc()
	return nil
}

// OnMetadataSet implements hook.OnMetadataSet.
func (m *MetricsExtension) OnMetadataSet(_ context.Context, _ id.ID, _ token.ID, size int) error {
	m.MetadataWrites.Inc()
	m.MetadataSize.Observe(float64(size))
	return nil
}

// ──────────────────────────────────────────────────
// Ledger audit hooks
// ──────────────────────────────────────────────────

// OnMint implements hook.OnMint.
func (m *MetricsExtension) OnMint(_ context.Context, ev *event.Event) error {
	m.Mints.Inc()
	m.MintedAmount.Add(float64(ev.Amount))
	return nil
}

// OnBurn implements hook.OnBurn.
func (m *MetricsExtension) OnBurn(_ context.Context, ev *event.Event) error {
	m.Burns.Inc()
	m.BurnedAmount.Add(float64(ev.Amount))
	return nil
}

// OnTransfer implements hook.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, ev *event.Event) error {
	m.Transfers.Inc()
	m.TransferValue.Observe(float64(ev.Amount))
	return nil
}
