package enums

import "fmt"

// SenderType records which side of a reservation thread wrote a message.
type SenderType string

const (
	SenderTypeRequester SenderType = "requester"
	SenderTypeAdmin     SenderType = "admin"
)

var validSenderTypes = []SenderType{
	SenderTypeRequester,
	SenderTypeAdmin,
}

// String implements fmt.Stringer.
func (s SenderType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SenderType.
func (s SenderType) IsValid() bool {
	for _, candidate := range validSenderTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSenderType converts raw input into a SenderType.
func ParseSenderType(value string) (SenderType, error) {
	for _, candidate := range validSenderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sender type %q", value)
}
