package transmission

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransferRate is a speed in bytes per second. On the wire it is expressed
// in whole kilobytes (1000 bytes) per second.
type TransferRate int64

// KiloBytesPerSecond returns a rate of n kB/s.
func KiloBytesPerSecond(n int64) TransferRate {
	return TransferRate(n * 1000)
}

// KiloBytesPerSecond returns the rate truncated to kB/s.
func (r TransferRate) KiloBytesPerSecond() int64 {
	return int64(r) / 1000
}

func (r TransferRate) String() string {
	return fmt.Sprintf("%d kB/s", r.KiloBytesPerSecond())
}

func (r TransferRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.KiloBytesPerSecond())
}

func (r *TransferRate) UnmarshalJSON(data []byte) error {
	var kb int64
	if err := json.Unmarshal(data, &kb); err != nil {
		return err
	}
	*r = KiloBytesPerSecond(kb)
	return nil
}

// BytesPerSecond is a rate the daemon reports in bytes per second, such as
// the current session speed.
type BytesPerSecond int64

// Minutes is a duration sent as a whole number of minutes.
type Minutes time.Duration

func (m Minutes) Duration() time.Duration { return time.Duration(m) }

func (m Minutes) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(m) / time.Minute))
}

func (m *Minutes) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = Minutes(time.Duration(n) * time.Minute)
	return nil
}

// Seconds is a duration sent as a whole number of seconds.
type Seconds time.Duration

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(s) / time.Second))
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Seconds(time.Duration(n) * time.Second)
	return nil
}

// TimeOfDay is a wall clock time sent as minutes since midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Hour*60 + t.Minute)
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 || n >= 24*60 {
		return fmt.Errorf("time of day out of range: %d minutes", n)
	}
	*t = TimeOfDay{Hour: n / 60, Minute: n % 60}
	return nil
}

// UnixTime is a timestamp in seconds; zero or negative values mean unset.
type UnixTime struct {
	time.Time
}

func (t UnixTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(t.Unix())
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n <= 0 {
		*t = UnixTime{}
		return nil
	}
	*t = UnixTime{time.Unix(n, 0)}
	return nil
}

// PeerCount is a peer counter; the daemon reports -1 when it is unknown,
// which decodes as zero.
type PeerCount int

func (p *PeerCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PeerCount(max(n, 0))
	return nil
}

// FileSize is a size in bytes.
type FileSize int64

func (s FileSize) String() string {
	const unit = 1024
	if s < unit {
		return fmt.Sprintf("%d B", int64(s))
	}
	div, exp := int64(unit), 0
	for n := int64(s) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(s)/float64(div), "KMGTPE"[exp])
}
