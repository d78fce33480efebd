package inventory

import (
	"context"

	"medstore/m/domain"
)

// Observer is told about medicines whose stock changed, after the
// transaction commits. Implementations must not block for long.
type Observer interface {
	StockChanged(ctx context.Context, medicines []domain.Medicine)
}

// Observers fans a notification out to several observers.
type Observers []Observer

func (o Observers) StockChanged(ctx context.Context, medicines []domain.Medicine) {
	if len(medicines) == 0 {
		return
	}
	for _, obs := range o {
		if obs != nil {
			obs.StockChanged(ctx, medicines)
		}
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, medicines []domain.Medicine)

func (f ObserverFunc) StockChanged(ctx context.Context, medicines []domain.Medicine) {
	f(ctx, medicines)
}
