package bussurvey

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrSomeDevicesFailed is wrapped by Report.Err when at least one read failed.
var ErrSomeDevicesFailed = errors.New("some thermometers could not be read")

// Result is the outcome of reading one device.
type Result struct {
	DeviceID string
	Celsius  float64
	ReadAt   time.Time
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) Fahrenheit() float64 {
	return CelsiusToFahrenheit(r.Celsius)
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Report holds one Result per device, in the order the devices were read.
type Report struct {
	StartedAt time.Time
	Results   []Result
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

func (r Report) Err() error {
	failed := r.Failed()
	if failed == 0 {
		return nil
	}
	return errors.Wrap(ErrSomeDevicesFailed, fmt.Sprintf("%d of %d devices", failed, len(r.Results)))
}
