// Package errs defines the domain error-kind taxonomy of §7: a single
// tagged type handlers can switch on, rather than a Go error type per kind.
package errs

import "fmt"

// Kind is one row of the §7 error-kind table.
type Kind string

const (
	Conflict           Kind = "Conflict"
	WindowExpired      Kind = "WindowExpired"
	PermissionDenied   Kind = "PermissionDenied"
	NotFound           Kind = "NotFound"
	InvalidInput       Kind = "InvalidInput"
	Duplicate          Kind = "Duplicate"
	NoOp               Kind = "NoOp"
	QuotaExceeded      Kind = "QuotaExceeded"
	TransportRateLimited Kind = "TransportRateLimited"
	TransportFailed    Kind = "TransportFailed"
	StoreBusy          Kind = "StoreBusy"
)

// Domain is a domain-level error carrying its Kind and any data a handler
// needs to render an ephemeral reply (e.g. the conflicting reservations).
type Domain struct {
	Kind   Kind
	Detail string
	// Data carries kind-specific payload (e.g. []Reservation for Conflict).
	Data any
}

func (e *Domain) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// New builds a Domain error with no extra payload.
func New(kind Kind, detail string) *Domain { return &Domain{Kind: kind, Detail: detail} }

// WithData builds a Domain error carrying Data for the handler to render.
func WithData(kind Kind, detail string, data any) *Domain {
	return &Domain{Kind: kind, Detail: detail, Data: data}
}

// Is reports whether err is a *Domain of the given kind.
func Is(err error, kind Kind) bool {
	d, ok := err.(*Domain)
	return ok && d.Kind == kind
}
