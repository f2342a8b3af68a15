package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Same-state moves between pending and confirmed are allowed no-ops.
// cancelled has no outgoing edge.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPending: true, StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusPending: true, StatusConfirmed: true, StatusCancelled: true},
	StatusCancelled: {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", Validation("status", "must be one of pending, confirmed, cancelled")
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// CheckTransition classifies a rejected move; a repeated cancel gets its own kind.
func CheckTransition(orderID int64, from, to Status) error {
	if !to.Valid() {
		return Validation("status", "must be one of pending, confirmed, cancelled")
	}
	if from == StatusCancelled && to == StatusCancelled {
		return &Error{Kind: KindAlreadyCancelled, OrderID: orderID, Msg: "order already cancelled"}
	}
	if !CanTransition(from, to) {
		return &Error{Kind: KindInvalidTransition, OrderID: orderID,
			Msg: "cannot move order from " + string(from) + " to " + string(to)}
	}
	return nil
}
