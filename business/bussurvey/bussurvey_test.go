package bussurvey

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroedel/w1temp/foundation/ds18b20therm"
)

type fakeReader struct {
	devices      []string
	enumerateErr error
	temps        map[string]float64
	errs         map[string]error
	reads        []string
}

func (f *fakeReader) EnumerateThermometers() ([]string, error) {
	return f.devices, f.enumerateErr
}

func (f *fakeReader) ReadTemperature(id string) (float64, error) {
	f.reads = append(f.reads, id)
	if err, ok := f.errs[id]; ok {
		return 0, err
	}
	return f.temps[id], nil
}

func newTestSurveyor(t *testing.T, r DeviceReader) (*Surveyor, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s, err := New(r, logger)
	require.NoError(t, err)
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s, hook
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, logrus.New())
	assert.Error(t, err)
	_, err = New(&fakeReader{}, nil)
	assert.Error(t, err)
}

func TestSurveyEnumeratesWhenNoIDsGiven(t *testing.T) {
	r := &fakeReader{
		devices: []string{"28-00001", "28-00003"},
		temps:   map[string]float64{"28-00001": 22, "28-00003": -5},
	}
	s, _ := newTestSurveyor(t, r)

	report, err := s.Survey(nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "28-00001", report.Results[0].DeviceID)
	assert.Equal(t, 22.0, report.Results[0].Celsius)
	assert.InDelta(t, 71.6, report.Results[0].Fahrenheit(), 1e-9)
	assert.Equal(t, "28-00003", report.Results[1].DeviceID)
	assert.Equal(t, 23.0, report.Results[1].Fahrenheit())
	assert.NoError(t, report.Err())
	assert.Equal(t, 0, report.Failed())
}

func TestSurveyContinuesPastFailures(t *testing.T) {
	r := &fakeReader{
		temps: map[string]float64{"28-c": 19.5},
		errs: map[string]error{
			"28-a": ds18b20therm.ErrBadCRC,
			"28-b": &ds18b20therm.InvalidDataError{Msg: "missing CRC line"},
		},
	}
	s, hook := newTestSurveyor(t, r)

	report, err := s.Survey([]string{"28-a", "28-b", "28-c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"28-a", "28-b", "28-c"}, r.reads)

	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].OK())
	assert.True(t, errors.Is(report.Results[0].Err, ds18b20therm.ErrBadCRC))
	assert.False(t, report.Results[1].OK())
	assert.True(t, report.Results[2].OK())
	assert.Equal(t, 19.5, report.Results[2].Celsius)

	assert.Equal(t, 2, report.Failed())
	require.Error(t, report.Err())
	assert.True(t, errors.Is(report.Err(), ErrSomeDevicesFailed))
	assert.Contains(t, report.Err().Error(), "2 of 3 devices")

	var crcLogged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "sensor reported a CRC mismatch" && e.Data["device"] == "28-a" {
			crcLogged = true
		}
	}
	assert.True(t, crcLogged)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestSurveyDeduplicatesExplicitIDs(t *testing.T) {
	r := &fakeReader{temps: map[string]float64{"28-a": 1, "28-b": 2}}
	s, _ := newTestSurveyor(t, r)

	report, err := s.Survey([]string{"28-b", "28-a", "28-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"28-b", "28-a"}, r.reads)
	assert.Len(t, report.Results, 2)
}

func TestSurveyEnumerationFailure(t *testing.T) {
	enumErr := &ds18b20therm.AccessError{Msg: `reading directory "/sys/bus/w1/devices"`, Err: errors.New("no such file or directory")}
	r := &fakeReader{enumerateErr: enumErr}
	s, _ := newTestSurveyor(t, r)

	report, err := s.Survey(nil)
	require.Error(t, err)
	var access *ds18b20therm.AccessError
	assert.True(t, errors.As(err, &access))
	assert.Empty(t, report.Results)
	assert.Empty(t, r.reads)
}

func TestSurveyNoDevices(t *testing.T) {
	s, _ := newTestSurveyor(t, &fakeReader{})
	report, err := s.Survey(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.NoError(t, report.Err())
}

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.Equal(t, 32.0, CelsiusToFahrenheit(0))
	assert.Equal(t, 212.0, CelsiusToFahrenheit(100))
	assert.Equal(t, -40.0, CelsiusToFahrenheit(-40))
}
