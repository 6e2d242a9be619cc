// Package provider holds the HTTP clients for the external optimization
// and routing services.
package provider

import "fmt"

// Error is returned for transport and HTTP failures against either
// provider. It carries enough for callers to surface the failure verbatim.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transport error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s HTTP %d: %s", e.Op, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }
