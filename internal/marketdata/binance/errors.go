package binance

import "fmt"

// TransportError reports a failed request: the connection failed, the body
// could not be read, or the server answered with a non-2xx status.
// StatusCode is 0 when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Message    string // exchange error message, if the body carried one
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("klines request %s: status %d: %s", e.URL, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("klines request %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("klines request %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a response that is not valid JSON (Index == -1) or a
// tuple field that is not numeric.
type ParseError struct {
	Index int    // tuple index, -1 for the body as a whole
	Field string // field name, e.g. "close"
	Value any
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("parse klines body: %v", e.Err)
	}
	return fmt.Sprintf("parse kline %d field %s (%v): %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports a tuple with fewer fields than the requested Shape.
type ShapeError struct {
	Index int
	Got   int
	Want  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("kline %d has %d fields, want at least %d", e.Index, e.Got, e.Want)
}
