package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// cancelled is terminal; a cancelled order only accepts a payment-status
// change so that a later (cancelled, failed) can still release stock.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPending: true, StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {StatusCompleted: true, StatusCancelled: true},
	StatusCancelled: {StatusCancelled: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// postsRevenue reports whether (s, p) is the pair that books revenue.
func postsRevenue(s Status, p PaymentStatus) bool {
	return s == StatusCompleted && p == PaymentPaid
}

// releasesStock reports whether (s, p) is the pair that returns stock and
// reverses any booked revenue.
func releasesStock(s Status, p PaymentStatus) bool {
	return s == StatusCancelled && p == PaymentFailed
}
