package ds18b20therm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBadCRC is returned when the driver reports that the scratchpad it read
// from the device did not match its CRC. The record itself was well formed.
var ErrBadCRC = errors.New("sensor data failed CRC check")

// AccessError means a step reaching the registry or a device file failed.
type AccessError struct {
	Msg string
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("error %s: %s", e.Msg, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// InvalidDataError means the device file did not have the expected shape.
// Data holds the offending line verbatim, or is empty when a line was missing.
type InvalidDataError struct {
	Msg  string
	Data string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("sensor data is invalid: %s. (data: %q)", e.Msg, e.Data)
}
