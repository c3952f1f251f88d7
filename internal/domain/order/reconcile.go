package order

// StockAction is what a status change does to stock.
type StockAction int

const (
	StockNone StockAction = iota
	StockDeduct
	StockRestore
)

func (a StockAction) String() string {
	switch a {
	case StockDeduct:
		return "deduct"
	case StockRestore:
		return "restore"
	default:
		return "none"
	}
}

// PlanStockAction decides the stock action for moving to next.
//
// deducted is whether the order's stock is currently out of the warehouse.
// Only the first crossing into the deducting set deducts and only the first
// crossing back into the restoring set restores, so repeated moves on one
// side of the boundary never touch stock twice.
func PlanStockAction(deducted bool, next Status) StockAction {
	switch {
	case !deducted && next.Deducting():
		return StockDeduct
	case deducted && next.Restoring():
		return StockRestore
	default:
		return StockNone
	}
}

// DeductedIn is the deducted flag implied by a status alone. Used for orders
// whose flag was never recorded.
func DeductedIn(s Status) bool {
	return s.Deducting()
}
