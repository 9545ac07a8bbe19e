package repo

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Timestamp stores times as UTC RFC3339 text so that lexical order matches
// chronological order and date() yields the UTC calendar day.
type Timestamp time.Time

func (ts Timestamp) Value() (driver.Value, error) {
	return time.Time(ts).UTC().Format(time.RFC3339), nil
}

func (ts *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*ts = Timestamp(time.Time{})
		return nil
	case time.Time:
		*ts = Timestamp(v.UTC())
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return fmt.Errorf("cannot scan type %T into Timestamp", value)
}

func (ts *Timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.DateTime, s)
		if err != nil {
			return err
		}
	}
	*ts = Timestamp(t.UTC())
	return nil
}

func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}
