package enums

// PaymentMethod is how the buyer settles: cash on delivery or a hosted card checkout.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

var paymentMethods = []PaymentMethod{PaymentMethodCOD, PaymentMethodCard}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return member(paymentMethods, p) }

// CollectedOnline is true for methods settled through the payment processor.
func (p PaymentMethod) CollectedOnline() bool { return p == PaymentMethodCard }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(paymentMethods, value, "payment method")
}
