package enums

import "fmt"

// MailKind names the requester-facing email templates the desk sends.
type MailKind string

const (
	MailKindSubmissionReceived MailKind = "submission_received"
	MailKindStatusUpdate       MailKind = "status_update"
	MailKindReadyForPickup     MailKind = "ready_for_pickup"
	MailKindStaffReply         MailKind = "staff_reply"
	MailKindOverdueReminder    MailKind = "overdue_reminder"
)

var validMailKinds = []MailKind{
	MailKindSubmissionReceived,
	MailKindStatusUpdate,
	MailKindReadyForPickup,
	MailKindStaffReply,
	MailKindOverdueReminder,
}

// String implements fmt.Stringer.
func (m MailKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MailKind.
func (m MailKind) IsValid() bool {
	for _, candidate := range validMailKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMailKind converts raw input into a MailKind.
func ParseMailKind(value string) (MailKind, error) {
	for _, candidate := range validMailKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mail kind %q", value)
}
