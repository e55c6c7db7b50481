package schematic

import "fmt"

// UnknownSymbolError indicates a placement referenced a symbol absent from
// the catalog.
type UnknownSymbolError struct {
	LibID string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q: not in catalog", e.LibID)
}

// UnknownPinError indicates a pin key that matches neither a pin name nor a
// pin number on the placement's symbol.
type UnknownPinError struct {
	Reference string
	Pin       string
	LibID     string
}

func (e *UnknownPinError) Error() string {
	return fmt.Sprintf("unknown pin %q on %s (%s)", e.Pin, e.Reference, e.LibID)
}

// DuplicateConnectionError indicates a second connection attempt on a pin
// that already carries one. The target net does not matter: reconnecting a
// pin to the same net is still a duplicate.
type DuplicateConnectionError struct {
	Reference string
	Pin       string
	Net       string
}

func (e *DuplicateConnectionError) Error() string {
	return fmt.Sprintf("pin %q on %s already connected (attempted net %q)", e.Pin, e.Reference, e.Net)
}

// PinConflictError indicates a pin was both connected and marked
// no-connect. The two are mutually exclusive.
type PinConflictError struct {
	Reference string
	Pin       string
}

func (e *PinConflictError) Error() string {
	return fmt.Sprintf("pin %q on %s has both a connection and a no-connect marker", e.Pin, e.Reference)
}

// UnresolvedPin identifies a placed pin with neither a connection nor a
// no-connect marker, reported by the builder's completeness check.
type UnresolvedPin struct {
	Reference string
	Pin       string
	Number    string
}

func (u UnresolvedPin) String() string {
	return fmt.Sprintf("%s pin %s (%s)", u.Reference, u.Number, u.Pin)
}
