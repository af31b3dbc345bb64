package models

// OrderStatus is the status of the order a report is generated for.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// AllowsReportGeneration reports whether a report may be generated for an
// order in this status. An empty status means the caller did not supply one.
func (s OrderStatus) AllowsReportGeneration() bool {
	return s == "" || (s.Valid() && s != OrderCancelled)
}
