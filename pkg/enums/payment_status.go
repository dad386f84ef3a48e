package enums

// PaymentStatus is the settlement state of an order, independent of its fulfilment status.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return member(paymentStatuses, p) }

// Settled reports whether money has changed hands, even if later refunded.
func (p PaymentStatus) Settled() bool {
	return p == PaymentStatusPaid || p == PaymentStatusRefunded
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(paymentStatuses, value, "payment status")
}
