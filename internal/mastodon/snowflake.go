package mastodon

import (
	"fmt"
	"strconv"
	"time"
)

// snowflakeTime decodes the creation time embedded in a Mastodon ID: the
// upper 48 bits are milliseconds since the Unix epoch.
func snowflakeTime(id string) (time.Time, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing snowflake id %q: %w", id, err)
	}
	return time.UnixMilli(int64(n >> 16)), nil
}
