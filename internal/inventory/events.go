package inventory

import (
	"context"
	"time"
)

// StockChangedEvent is emitted when an ingredient's stock level changes.
type StockChangedEvent struct {
	IngredientID int64
	Name         string
	Previous     float64
	Current      float64
	Unit         Unit
	MinStock     float64
	Status       StockStatus
	ChangedAt    time.Time
}

// BecameCritical reports whether the change moved the ingredient into the
// critical band.
func (e StockChangedEvent) BecameCritical() bool {
	return e.Status == StatusCritical && e.Previous > e.MinStock
}

// StockListener receives stock change events after they are committed.
type StockListener interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}
