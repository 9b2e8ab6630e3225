package misskey

import (
	"fmt"
	"strconv"
	"time"
)

const (
	aidxTimeLength = 8
	// 2000-01-01T00:00:00Z in milliseconds.
	aidxEpochMilli = 946684800000
)

// aidxTime decodes the creation time embedded in an aidx identifier: the
// first 8 characters are a base36 offset from the 2000-01-01 epoch.
func aidxTime(id string) (time.Time, error) {
	if len(id) < aidxTimeLength {
		return time.Time{}, fmt.Errorf("aidx id too short: %q", id)
	}

	offset, err := strconv.ParseInt(id[:aidxTimeLength], 36, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing aidx id %q: %w", id, err)
	}

	return time.UnixMilli(aidxEpochMilli + offset), nil
}
