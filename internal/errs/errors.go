// Package errs defines the operator-facing error taxonomy shared by every
// GeoRAG component (§7). It is the core's equivalent of the teacher's
// utils.ErrorResponse, decoupled from gin.Context so it carries no HTTP
// dependency: adapters at the edge (internal/api) translate a *Error into
// whatever wire shape they need.
package errs

import "fmt"

// Kind is one of the fixed taxonomy values named in §7.
type Kind string

const (
	Io                 Kind = "Io"
	Parse              Kind = "Parse"
	CrsError           Kind = "CrsError"
	GeometryError      Kind = "GeometryError"
	EmbedderUnavailable Kind = "EmbedderUnavailable"
	DimensionMismatch  Kind = "DimensionMismatch"
	InvalidInput       Kind = "InvalidInput"
	NotFound           Kind = "NotFound"
	Conflict           Kind = "Conflict"
	Timeout            Kind = "Timeout"
	Cancelled          Kind = "Cancelled"
	IndexNotBuilt      Kind = "IndexNotBuilt"
	IntegrityMismatch  Kind = "IntegrityMismatch"
	Internal           Kind = "Internal"
)

// Error is the structured error every port, parser adapter, and pipeline
// stage surfaces. It carries a Kind, an operator-facing Message, an
// optional remediation hint, and a context chain (Op, EntityID, Cause).
type Error struct {
	Kind       Kind
	Message    string
	Remediation string
	Op         string // the operation that failed, e.g. "builder.Embed"
	EntityID   string // the entity implicated, if any
	Cause      error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Op != "" {
		s = fmt.Sprintf("%s (op=%s)", s, e.Op)
	}
	if e.EntityID != "" {
		s = fmt.Sprintf("%s (entity=%s)", s, e.EntityID)
	}
	if e.Cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and the failing op to an underlying cause; the
// message is the cause's own text.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Op: op, Cause: cause}
}

// WithOp returns a copy of e with Op set, for re-raising up the call stack.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

// WithEntity returns a copy of e with EntityID set.
func (e *Error) WithEntity(id string) *Error {
	c := *e
	c.EntityID = id
	return &c
}

// WithRemediation returns a copy of e with a remediation hint attached.
// EmbedderUnavailable errors MUST carry one naming the expected service
// and model tag (§7).
func (e *Error) WithRemediation(hint string) *Error {
	c := *e
	c.Remediation = hint
	return &c
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Internal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As is a thin wrapper so callers don't need a separate "errors" import
// alongside this package in the common case.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Payload is the JSON-shaped error payload required by §7:
// {error, details?}.
type Payload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ToPayload renders err as the machine-consumable JSON shape from §7.
func ToPayload(err error) Payload {
	var e *Error
	if As(err, &e) {
		p := Payload{Error: e.Message}
		if e.Remediation != "" {
			p.Details = e.Remediation
		}
		return p
	}
	return Payload{Error: err.Error()}
}
