package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
)

// Statuses in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered}

// Orders only move forward, one step at a time.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true},
	StatusConfirmed: {StatusPreparing: true},
	StatusPreparing: {StatusReady: true},
	StatusReady:     {StatusDelivered: true},
	StatusDelivered: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Next returns the single legal successor, false for terminal states.
func (s Status) Next() (Status, bool) {
	for to := range validNext[s] {
		return to, true
	}
	return "", false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s Status) Title() string {
	switch s {
	case StatusPending:
		return "⏳ Ожидает подтверждения"
	case StatusConfirmed:
		return "✅ Подтвержден"
	case StatusPreparing:
		return "👨‍🍳 Готовится"
	case StatusReady:
		return "🎉 Готов к выдаче"
	case StatusDelivered:
		return "📦 Выдан"
	}
	return string(s)
}
