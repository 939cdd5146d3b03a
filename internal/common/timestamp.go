package common

import "time"

// Timestamp returns the current UTC instant as an ISO-8601 string
// with microsecond precision, the format used in all server responses.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
