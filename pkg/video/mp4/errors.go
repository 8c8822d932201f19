package mp4

import "errors"

// ErrArithmeticOverflow indicates a checked timestamp computation would
// overflow its target width.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// ErrIntegerConversion indicates a value does not fit the field it is
// being written into.
var ErrIntegerConversion = errors.New("integer conversion")

// ErrIoWrite indicates the output sink rejected a write.
var ErrIoWrite = errors.New("io write")
