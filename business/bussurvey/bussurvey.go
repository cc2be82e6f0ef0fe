// Package bussurvey reads a set of thermometers one after the other and
// collects every outcome, so one broken sensor never hides the others.
package bussurvey

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jroedel/w1temp/foundation/ds18b20therm"
)

// DeviceReader is satisfied by *ds18b20therm.DS18B20Reader.
type DeviceReader interface {
	EnumerateThermometers() ([]string, error)
	ReadTemperature(deviceID string) (float64, error)
}

type Surveyor struct {
	reader DeviceReader
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(reader DeviceReader, log logrus.FieldLogger) (*Surveyor, error) {
	if reader == nil {
		return nil, errors.New("survey construct: DeviceReader is required")
	}
	if log == nil {
		return nil, errors.New("survey construct: Logger is required")
	}
	return &Surveyor{reader: reader, log: log, now: time.Now}, nil
}

// Devices returns ids with duplicates dropped, or every thermometer on the
// bus when ids is empty.
func (s *Surveyor) Devices(ids []string) ([]string, error) {
	if len(ids) == 0 {
		found, err := s.reader.EnumerateThermometers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerating sensors")
		}
		return found, nil
	}

	seen := make(map[string]bool, len(ids))
	devices := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		devices = append(devices, id)
	}
	return devices, nil
}

// Survey reads every device in ids (or every device found) once. The error is
// only set when the devices could not be enumerated; per-device failures are
// in the report.
func (s *Surveyor) Survey(ids []string) (Report, error) {
	report := Report{StartedAt: s.now()}

	devices, err := s.Devices(ids)
	if err != nil {
		return report, err
	}

	report.Results = make([]Result, 0, len(devices))
	for _, id := range devices {
		report.Results = append(report.Results, s.read(id))
	}

	if failed := report.Failed(); failed > 0 {
		s.log.Warnf("%d of %d thermometer(s) could not be read", failed, len(devices))
	} else {
		s.log.Infof("read %d thermometer(s)", len(devices))
	}
	return report, nil
}

func (s *Surveyor) read(id string) Result {
	celsius, err := s.reader.ReadTemperature(id)
	res := Result{DeviceID: id, Celsius: celsius, ReadAt: s.now(), Err: err}

	l := s.log.WithField("device", id)
	switch {
	case err == nil:
		l.WithField("celsius", celsius).Debug("read temperature")
	case errors.Is(err, ds18b20therm.ErrBadCRC):
		l.Warn("sensor reported a CRC mismatch")
	default:
		l.WithError(err).Warn("could not read sensor")
	}
	return res
}
