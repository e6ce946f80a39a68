package enums

import "fmt"

// CheckoutStatus tracks whether a single loaned unit is out or back.
type CheckoutStatus string

const (
	CheckoutStatusCheckedOut CheckoutStatus = "checked_out"
	CheckoutStatusReturned   CheckoutStatus = "returned"
)

var validCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusCheckedOut,
	CheckoutStatusReturned,
}

// String implements fmt.Stringer.
func (c CheckoutStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStatus.
func (c CheckoutStatus) IsValid() bool {
	for _, candidate := range validCheckoutStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutStatus converts raw input into a CheckoutStatus.
func ParseCheckoutStatus(value string) (CheckoutStatus, error) {
	for _, candidate := range validCheckoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout status %q", value)
}
