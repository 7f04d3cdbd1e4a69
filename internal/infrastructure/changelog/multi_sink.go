package changelog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
)

// NamedSink pairs a sink with the name it was configured under
type NamedSink struct {
	Name string
	Sink inventory.ChangeLogger
}

// MultiSink appends to every configured sink in order. All sinks are tried
// even when an earlier one fails; the failures are joined.
type MultiSink struct {
	sinks []NamedSink
}

// NewMultiSink creates a fan-out sink
func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append writes records to every sink
func (m *MultiSink) Append(ctx context.Context, records ...inventory.ChangeRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Append(ctx, records...); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Names lists the configured sink names
func (m *MultiSink) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

var _ inventory.ChangeLogger = (*MultiSink)(nil)
