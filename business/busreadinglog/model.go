package busreadinglog

import (
	"database/sql"
	"time"
)

// Entry is one journaled device read. Celsius is null when the read failed,
// in which case Error holds the reason.
type Entry struct {
	ID          int64           `db:"id"`
	ExecutionID string          `db:"execution_id"`
	DeviceID    string          `db:"device_id"`
	ReadAtUnix  int64           `db:"read_at"`
	Celsius     sql.NullFloat64 `db:"celsius"`
	Error       string          `db:"error"`
}

func (e Entry) ReadAt() time.Time {
	return time.Unix(e.ReadAtUnix, 0)
}

func (e Entry) OK() bool {
	return e.Celsius.Valid
}

type HistoryFilter struct {
	DeviceID string // all devices when empty
	Limit    int    // DefaultHistoryLimit when zero
}

const DefaultHistoryLimit = 20
