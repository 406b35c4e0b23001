package domain

import "time"

// FallbackCategory names one locally stored dataset served while the
// backend is unreachable.
type FallbackCategory string

const (
	FallbackOrdersPending    FallbackCategory = "orders_pending"
	FallbackOrdersInProgress FallbackCategory = "orders_in_progress"
	FallbackOrdersCompleted  FallbackCategory = "orders_completed"
	FallbackStock            FallbackCategory = "stock"
)

// FallbackCategories lists every seeded category.
var FallbackCategories = []FallbackCategory{
	FallbackOrdersPending,
	FallbackOrdersInProgress,
	FallbackOrdersCompleted,
	FallbackStock,
}

// Known reports whether the category is one of the seeded datasets.
func (c FallbackCategory) Known() bool {
	for _, known := range FallbackCategories {
		if c == known {
			return true
		}
	}
	return false
}

// OrderStatus is the lifecycle state of a coffee order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
)

// OrderItem is a single line on an order ticket.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Order is a coffee order as rendered on barista and display screens.
type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderItem `json:"items"`
	Status       OrderStatus `json:"status"`
	Station      string      `json:"station,omitempty"`
	PlacedAt     time.Time   `json:"placed_at"`
}

// StockItem is an inventory line for a stock category.
type StockItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// FallbackDatasetVersion is bumped when the seed shape changes; existing
// persisted seeds are never silently regenerated.
const FallbackDatasetVersion = 1

// FallbackDataset is the versioned snapshot served in degraded mode.
type FallbackDataset struct {
	Version  int         `json:"version"`
	SeededAt time.Time   `json:"seeded_at"`
	Pending  []Order     `json:"pending"`
	InProg   []Order     `json:"in_progress"`
	Done     []Order     `json:"completed"`
	Stock    []StockItem `json:"stock"`
}

// Category returns the order slice for an order category, or nil for stock.
func (d *FallbackDataset) Category(c FallbackCategory) []Order {
	switch c {
	case FallbackOrdersPending:
		return d.Pending
	case FallbackOrdersInProgress:
		return d.InProg
	case FallbackOrdersCompleted:
		return d.Done
	}
	return nil
}

// SeedFallbackDataset builds the deterministic sample dataset used when the
// backend cannot be reached. The order and contents never vary for a given
// seed instant, so two activations in a row persist identical bytes.
func SeedFallbackDataset(now time.Time) *FallbackDataset {
	now = now.UTC().Truncate(time.Second)
	return &FallbackDataset{
		Version:  FallbackDatasetVersion,
		SeededAt: now,
		Pending: []Order{
			{
				ID:           "offline-001",
				CustomerName: "Walk-in 1",
				Items:        []OrderItem{{Name: "Flat White", Quantity: 1}, {Name: "Croissant", Quantity: 1}},
				Status:       OrderPending,
				Station:      "bar-1",
				PlacedAt:     now.Add(-4 * time.Minute),
			},
			{
				ID:           "offline-002",
				CustomerName: "Walk-in 2",
				Items:        []OrderItem{{Name: "Espresso", Quantity: 2, Notes: "double shot"}},
				Status:       OrderPending,
				Station:      "bar-1",
				PlacedAt:     now.Add(-3 * time.Minute),
			},
		},
		InProg: []Order{
			{
				ID:           "offline-003",
				CustomerName: "Walk-in 3",
				Items:        []OrderItem{{Name: "Cappuccino", Quantity: 1, Notes: "oat milk"}},
				Status:       OrderInProgress,
				Station:      "bar-2",
				PlacedAt:     now.Add(-7 * time.Minute),
			},
		},
		Done: []Order{
			{
				ID:           "offline-004",
				CustomerName: "Walk-in 4",
				Items:        []OrderItem{{Name: "Latte", Quantity: 1}},
				Status:       OrderCompleted,
				Station:      "bar-2",
				PlacedAt:     now.Add(-15 * time.Minute),
			},
		},
		Stock: []StockItem{
			{Name: "Espresso Beans", Category: "coffee", Quantity: 12, Unit: "kg"},
			{Name: "Whole Milk", Category: "dairy", Quantity: 24, Unit: "l"},
			{Name: "Oat Milk", Category: "dairy", Quantity: 10, Unit: "l"},
			{Name: "Paper Cups 12oz", Category: "supplies", Quantity: 400, Unit: "pcs"},
		},
	}
}
