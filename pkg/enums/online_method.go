package enums

import "fmt"

// OnlineMethod narrows an Online payment to the instrument used in the hosted widget.
type OnlineMethod string

const (
	OnlineMethodUPI        OnlineMethod = "UPI"
	OnlineMethodNetBanking OnlineMethod = "NetBanking"
	OnlineMethodCard       OnlineMethod = "Card"
)

var validOnlineMethods = []OnlineMethod{
	OnlineMethodUPI,
	OnlineMethodNetBanking,
	OnlineMethodCard,
}

// String implements fmt.Stringer.
func (o OnlineMethod) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OnlineMethod.
func (o OnlineMethod) IsValid() bool {
	for _, candidate := range validOnlineMethods {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOnlineMethod converts raw input into a OnlineMethod.
func ParseOnlineMethod(value string) (OnlineMethod, error) {
	for _, candidate := range validOnlineMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid online method %q", value)
}
