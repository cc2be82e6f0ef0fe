package busreadinglog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroedel/w1temp/business/bussurvey"
	"github.com/jroedel/w1temp/foundation/ds18b20therm"
	"github.com/jroedel/w1temp/foundation/sqldb"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := sqldb.Open(sqldb.DriverSQLite, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	j, err := New(db, "test-run")
	require.NoError(t, err)
	return j
}

func TestNew(t *testing.T) {
	_, err := New(nil, "")
	assert.Error(t, err)

	db, err := sqldb.Open(sqldb.DriverSQLite, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	j, err := New(db, "")
	require.NoError(t, err)
	assert.Len(t, j.ExecutionID(), 36)
}

func TestRecordAndHistory(t *testing.T) {
	j := newTestJournal(t)
	base := time.Unix(1700000000, 0)

	err := j.Record(bussurvey.Report{Results: []bussurvey.Result{
		{DeviceID: "28-a", Celsius: 21.5, ReadAt: base},
		{DeviceID: "28-b", ReadAt: base.Add(time.Second), Err: ds18b20therm.ErrBadCRC},
		{DeviceID: "28-a", Celsius: 22.0, ReadAt: base.Add(time.Minute)},
	}})
	require.NoError(t, err)

	entries, err := j.History(HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, "28-a", entries[0].DeviceID)
	assert.Equal(t, 22.0, entries[0].Celsius.Float64)
	assert.Equal(t, base.Add(time.Minute), entries[0].ReadAt())
	assert.Equal(t, "test-run", entries[0].ExecutionID)

	assert.Equal(t, "28-b", entries[1].DeviceID)
	assert.False(t, entries[1].OK())
	assert.Equal(t, "sensor data failed CRC check", entries[1].Error)

	assert.True(t, entries[2].OK())
	assert.Empty(t, entries[2].Error)
}

func TestRecordIsAllOrNothing(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, j.db.Exec(`
		CREATE TRIGGER reject_device BEFORE INSERT ON readings
		WHEN NEW.device_id = '28-rejected'
		BEGIN
			SELECT RAISE(ABORT, 'rejected');
		END`))

	base := time.Unix(1700000000, 0)
	err := j.Record(bussurvey.Report{Results: []bussurvey.Result{
		{DeviceID: "28-a", Celsius: 21.5, ReadAt: base},
		{DeviceID: "28-rejected", Celsius: 22, ReadAt: base},
		{DeviceID: "28-c", Celsius: 23, ReadAt: base},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal 28-rejected")

	entries, err := j.History(HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryFilter(t *testing.T) {
	j := newTestJournal(t)
	base := time.Unix(1700000000, 0)

	var results []bussurvey.Result
	for i := 0; i < 5; i++ {
		results = append(results,
			bussurvey.Result{DeviceID: "28-a", Celsius: float64(i), ReadAt: base.Add(time.Duration(i) * time.Minute)},
			bussurvey.Result{DeviceID: "28-b", Celsius: 10, ReadAt: base.Add(time.Duration(i) * time.Minute)},
		)
	}
	require.NoError(t, j.Record(bussurvey.Report{Results: results}))

	entries, err := j.History(HistoryFilter{DeviceID: "28-a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4.0, entries[0].Celsius.Float64)
	assert.Equal(t, 3.0, entries[1].Celsius.Float64)
	for _, e := range entries {
		assert.Equal(t, "28-a", e.DeviceID)
	}

	all, err := j.History(HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestAverage(t *testing.T) {
	j := newTestJournal(t)
	now := time.Unix(1700003600, 0)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Record(bussurvey.Report{Results: []bussurvey.Result{
		{DeviceID: "28-a", Celsius: 100, ReadAt: now.Add(-2 * time.Hour)}, // outside the window
		{DeviceID: "28-a", Celsius: 20, ReadAt: now.Add(-30 * time.Minute)},
		{DeviceID: "28-a", Celsius: 22, ReadAt: now.Add(-10 * time.Minute)},
		{DeviceID: "28-a", ReadAt: now.Add(-5 * time.Minute), Err: ds18b20therm.ErrBadCRC},
		{DeviceID: "28-b", Celsius: 50, ReadAt: now.Add(-5 * time.Minute)},
	}}))

	avg, ok, err := j.Average("28-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 21.0, avg)

	_, ok, err = j.Average("28-c", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = j.Average("", time.Hour)
	assert.Error(t, err)
}
