package recorder

import "TradeSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrade(_ string, _ *model.Trade) error { return nil }
func (n *NoopRecorder) RecordDecision(_ *DecisionEvent) error      { return nil }
func (n *NoopRecorder) RecordTick(_ *TickEvent) error              { return nil }
func (n *NoopRecorder) Close() error                               { return nil }
