package styleapi

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackMessage is shown when the backend rejected a request without saying why.
const FallbackMessage = "Request failed."

// FailureKind classifies why a call failed.
type FailureKind string

const (
	// KindTransport means no HTTP response was received.
	KindTransport FailureKind = "transport"
	// KindStatus means the response status was outside 2xx.
	KindStatus FailureKind = "status"
	// KindRejected means a 2xx response carried success:false.
	KindRejected FailureKind = "rejected"
)

// RequestError is returned by every failed backend call.
type RequestError struct {
	Op            string
	Kind          FailureKind
	Status        int
	ServerMessage string
	Err           error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString("styleapi: ")
	b.WriteString(e.Op)
	switch e.Kind {
	case KindStatus:
		fmt.Fprintf(&b, ": status %d", e.Status)
	case KindRejected:
		b.WriteString(": rejected")
	case KindTransport:
		b.WriteString(": transport")
	}
	if e.ServerMessage != "" {
		b.WriteString(": ")
		b.WriteString(e.ServerMessage)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// Message picks the text to show a user for err. A server-supplied message
// wins; a rejected or non-2xx response without one gets FallbackMessage; any
// other failure (transport, unexpected errors) gets the caller's fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.ServerMessage != "" {
			return reqErr.ServerMessage
		}
		if reqErr.Kind != KindTransport {
			return FallbackMessage
		}
	}
	return fallback
}
