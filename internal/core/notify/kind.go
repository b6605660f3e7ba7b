package notify

import "fmt"

// Kind classifies a notification. The set is closed: every consumption
// site switches over all values so a new kind is a compile-visible change.
type Kind string

const (
	KindLineDelay  Kind = "line_delay"
	KindLowBalance Kind = "low_balance"
	KindInfo       Kind = "info"
	KindSuccess    Kind = "success"
	KindWarning    Kind = "warning"
	KindError      Kind = "error"
)

// Kinds returns every valid kind, in display order.
func Kinds() []Kind {
	return []Kind{
		KindLineDelay,
		KindLowBalance,
		KindInfo,
		KindSuccess,
		KindWarning,
		KindError,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindLineDelay, KindLowBalance, KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// ParseKind converts a wire string into a Kind. Unknown values are rejected
// so corrupt payloads cannot smuggle new categories into the feed.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown notification kind %q", s)
	}
	return k, nil
}
