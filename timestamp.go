package bendybutt

import (
	"encoding/json"
	"time"
)

// Timestamp is the claimed creation time of a message in milliseconds since the unix epoch.
// It is a hint by the author and not used for ordering.
type Timestamp int64

// NewTimestamp truncates t to milliseconds
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts))
}

// UnmarshalJSON also accepts floating point milliseconds and drops the fraction
func (ts *Timestamp) UnmarshalJSON(in []byte) error {
	var milliseconds float64
	if err := json.Unmarshal(in, &milliseconds); err != nil {
		return err
	}
	*ts = Timestamp(int64(milliseconds))
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(ts))
}
