package models

// DenyReason explains a refused registration.
type DenyReason string

const (
	DenyReasonNone   DenyReason = ""
	DenyReasonPaused DenyReason = "paused"
	DenyReasonGated  DenyReason = "gated"
)

// Decision is the result of a registration authorization check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Outcome is a low-cardinality label for metrics and logs.
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allowed"
	}
	return string(d.Reason)
}
