package obd

import "fmt"

// Response is the typed result of an in-process query. Null responses carry
// no value, mirroring an adapter-side "NO DATA".
type Response struct {
	Name  string
	Value float64
	Unit  string
	Null  bool
}

// NullResponse returns an empty response for the given command name.
func NullResponse(name string) Response {
	return Response{Name: name, Null: true}
}

// String renders the response for logs and interactive use.
func (r Response) String() string {
	if r.Null {
		return "None"
	}
	if r.Unit == "" {
		return fmt.Sprintf("%.2f", r.Value)
	}
	return fmt.Sprintf("%.2f %s", r.Value, r.Unit)
}
