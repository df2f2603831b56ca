package rfcdate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Format string for full-date in RFC3339 (= "date" in OpenAPI).
const DateFormat string = "2006-01-02"

// calendar date without time-of-day, as found in https://www.ietf.org/rfc/rfc3339.txt .
//
// This type is useful to interchange dates like "2025-01-31" via network/file.
type Date time.Time

func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) Equal(other Date) bool {
	return d.Time().Equal(other.Time())
}

// true when this date is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) String() string {
	return time.Time(d).Format(DateFormat)
}

// Parse "yyyy-mm-dd" string to Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return *new(Date), err
	}
	return Date(t), nil
}

// implement encoding/json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, d)), nil
}

// implement encoding/json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
