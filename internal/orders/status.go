package orders

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPending: true, StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {StatusCompleted: true},
	StatusCancelled: {StatusCancelled: true},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reports whether an order in from may be set to to. Completed and
// cancelled orders are final.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
