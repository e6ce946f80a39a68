package enums

import "fmt"

// ReservationStatus tracks the triage decision dimension of a checkout request.
type ReservationStatus string

const (
	ReservationStatusUnseen   ReservationStatus = "unseen"
	ReservationStatusSeen     ReservationStatus = "seen"
	ReservationStatusApproved ReservationStatus = "approved"
	ReservationStatusDenied   ReservationStatus = "denied"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusUnseen,
	ReservationStatusSeen,
	ReservationStatusApproved,
	ReservationStatusDenied,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsDecided reports whether the status dimension reached a terminal value.
func (r ReservationStatus) IsDecided() bool {
	return r == ReservationStatusApproved || r == ReservationStatusDenied
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
