package common

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OptionalTimings holds Timings that a detector may or may not have reported.
// The zero value is absent.
type OptionalTimings struct {
	timings Timings
	present bool
}

// SomeTimings wraps reported timings.
func SomeTimings(t Timings) OptionalTimings {
	return OptionalTimings{timings: t, present: true}
}

// NoTimings is the absent value.
func NoTimings() OptionalTimings {
	return OptionalTimings{}
}

// Get returns the timings and whether they were reported.
func (o OptionalTimings) Get() (Timings, bool) {
	return o.timings, o.present
}

// Present reports whether timings were reported.
func (o OptionalTimings) Present() bool {
	return o.present
}

// MarshalJSON encodes absent timings as null.
func (o OptionalTimings) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.timings)
}

// UnmarshalJSON decodes an object into present timings and null into absent.
func (o *OptionalTimings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = NoTimings()
		return nil
	}

	var t Timings
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*o = SomeTimings(t)
	return nil
}
