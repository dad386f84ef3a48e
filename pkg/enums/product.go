package enums

// ProductStatus gates whether a product can be added to new orders.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

var productStatuses = []ProductStatus{ProductStatusActive, ProductStatusInactive}

func (p ProductStatus) String() string { return string(p) }

func (p ProductStatus) IsValid() bool { return member(productStatuses, p) }

func (p ProductStatus) Orderable() bool { return p == ProductStatusActive }

func ParseProductStatus(value string) (ProductStatus, error) {
	return parse(productStatuses, value, "product status")
}
