package inventory

import (
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// AvailabilityResult is the outcome of an availability check
type AvailabilityResult struct {
	Items            []inventory.StockStatus `json:"items"`
	OverallAvailable bool                    `json:"overall_available"`
}

// DepletionWarnings returns the skus that an order would drain completely
func (r AvailabilityResult) DepletionWarnings() []string {
	var skus []string
	for _, s := range r.Items {
		if s.DepletionWarning() {
			skus = append(skus, s.SKU)
		}
	}
	return skus
}

// ReservationResult is the outcome of a successful reserve
type ReservationResult struct {
	OrderID string                     `json:"order_id"`
	Items   []inventory.OrderItem      `json:"items"`
	State   inventory.ReservationState `json:"state"`
	// Replayed is true when the order already held a reservation and nothing was applied
	Replayed   bool      `json:"replayed"`
	ReservedAt time.Time `json:"reserved_at"`
}

// ReleaseOutcome is the per-item result of a release
type ReleaseOutcome string

const (
	ReleaseOutcomeReleased ReleaseOutcome = "released"
	ReleaseOutcomeNotFound ReleaseOutcome = "not_found"
	ReleaseOutcomeFailed   ReleaseOutcome = "failed"
)

// ReleaseLine reports what happened to one released item.
// Released can be lower than Requested when the reserved count was clamped at zero.
type ReleaseLine struct {
	SKU              string          `json:"sku"`
	Requested        decimal.Decimal `json:"requested"`
	Released         decimal.Decimal `json:"released"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Outcome          ReleaseOutcome  `json:"outcome"`
	Error            string          `json:"error,omitempty"`
}

// ReleaseResult is the outcome of a release. It is returned even when some items failed.
type ReleaseResult struct {
	OrderID     string        `json:"order_id,omitempty"`
	Items       []ReleaseLine `json:"items"`
	AllReleased bool          `json:"all_released"`
	Replayed    bool          `json:"replayed"`
}

// DeductedLine is the before/after view of one committed line
type DeductedLine struct {
	SKU              string          `json:"sku"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	PreviousReserved decimal.Decimal `json:"previous_reserved"`
	NewReserved      decimal.Decimal `json:"new_reserved"`
}

// DeductionResult is the outcome of a successful commit
type DeductionResult struct {
	OrderID     string         `json:"order_id"`
	Items       []DeductedLine `json:"items"`
	Replayed    bool           `json:"replayed"`
	CommittedAt time.Time      `json:"committed_at"`
	// LogError is set when the stock change committed but its audit records were
	// not accepted by the change log
	LogError *inventory.LoggingError `json:"-"`
}

// LedgerLine is one line of an order's reservation ledger
type LedgerLine struct {
	SKU       string                     `json:"sku"`
	Quantity  decimal.Decimal            `json:"quantity"`
	State     inventory.ReservationState `json:"state"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// OrderReservationView is the ledger of one order
type OrderReservationView struct {
	OrderID string                     `json:"order_id"`
	State   inventory.ReservationState `json:"state"`
	Lines   []LedgerLine               `json:"lines"`
}

func toOrderReservationView(orderID string, ledger inventory.OrderLedger) *OrderReservationView {
	state, _ := ledger.State()
	view := &OrderReservationView{
		OrderID: orderID,
		State:   state,
		Lines:   make([]LedgerLine, len(ledger)),
	}
	for i, e := range ledger {
		view.Lines[i] = LedgerLine{
			SKU:       e.SKU,
			Quantity:  e.Quantity,
			State:     e.State,
			UpdatedAt: e.UpdatedAt,
		}
	}
	return view
}
