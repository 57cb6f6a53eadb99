package offer

type Status string

const (
	StatusOpen      Status = "open"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// HoldsAcceptor reports whether an offer in this status must carry an acceptor.
func (s Status) HoldsAcceptor() bool {
	return s == StatusAccepted || s == StatusCompleted
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// accepted -> open is the administrative reset.
var transitions = map[Status][]Status{
	StatusOpen:     {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusOpen},
}

func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
