package layout

import "errors"

// ErrInvalidParameters is returned when a layout cannot be evaluated: a zero
// entry size, a header that fills the page, an order of zero, or a result
// that does not fit in 32 bits.
var ErrInvalidParameters = errors.New("invalid layout parameters")
