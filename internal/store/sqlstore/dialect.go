package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat
	// LockSuffix is appended to selects made inside write units of work.
	LockSuffix string
	// TimeType is the column type used for timestamps.
	TimeType string
	// encodeTime turns a timestamp into a driver argument.
	encodeTime func(time.Time) interface{}
}

// fixed width so that text timestamps sort chronologically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// Postgres is the pgx dialect.
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: squirrel.Dollar,
		LockSuffix:  "FOR UPDATE",
		TimeType:    "TIMESTAMPTZ",
		encodeTime:  func(t time.Time) interface{} { return t.UTC() },
	}

	// SQLite is the modernc.org/sqlite dialect. Writers are serialized by the
	// single connection, so no row locks are needed.
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: squirrel.Question,
		TimeType:    "TEXT",
		encodeTime:  func(t time.Time) interface{} { return t.UTC().Format(sqliteTimeLayout) },
	}
)

func (d Dialect) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// paginate applies limit and offset. SQLite rejects OFFSET without LIMIT.
func paginate(q squirrel.SelectBuilder, limit, skip int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	} else if skip > 0 {
		q = q.Limit(math.MaxInt32)
	}
	if skip > 0 {
		q = q.Offset(uint64(skip))
	}
	return q
}

func (d Dialect) timeArg(t time.Time) interface{} {
	return d.encodeTime(t)
}

func (d Dialect) nullTimeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return d.encodeTime(*t)
}

// timeValue scans timestamps stored either natively or as text.
type timeValue struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner.
func (v *timeValue) Scan(src interface{}) error {
	switch t := src.(type) {
	case nil:
		v.Time, v.Valid = time.Time{}, false
		return nil
	case time.Time:
		v.Time, v.Valid = t.UTC(), true
		return nil
	case string:
		return v.parse(t)
	case []byte:
		return v.parse(string(t))
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

// Value implements driver.Valuer so timeValue can be reused as an argument.
func (v timeValue) Value() (driver.Value, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.Time, nil
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time, v.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (v timeValue) ptr() *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
