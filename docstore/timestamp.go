package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is the store-native time type. Domain code converts to and
// from time.Time at the repository boundary and never keeps a Timestamp.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// timestampKey marks an encoded Timestamp inside a JSON document.
const timestampKey = "$timestamp"

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// AsTime returns the instant in UTC.
func (ts Timestamp) AsTime() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

func (ts Timestamp) String() string {
	return ts.AsTime().Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{timestampKey: ts.String()})
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, ok := raw[timestampKey]
	if !ok {
		return fmt.Errorf("timestamp: missing %q key", timestampKey)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*ts = NewTimestamp(t)
	return nil
}
