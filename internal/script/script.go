// Package script holds the Script record and the ordered Collection that
// owns every script known to a session.
package script

import "encoding/json"

// Options is the set of boolean flags attached to a script.
// New flags must get an explicit default in DefaultOptions.
type Options struct {
	// RequiresJQuery injects the cached library payload before the script body.
	RequiresJQuery bool `json:"requiresJQuery"`
}

// DefaultOptions returns the value every flag takes when absent from
// persisted or imported data.
func DefaultOptions() Options {
	return Options{RequiresJQuery: false}
}

// UnmarshalJSON starts from DefaultOptions so keys missing from older data
// keep their documented default.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	p := plain(DefaultOptions())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Options(p)
	return nil
}

// Script is a named unit of executable code. ID is assigned once by the
// Collection and never changes.
type Script struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Code    string  `json:"code"`
	Options Options `json:"options"`
}

// UnmarshalJSON applies DefaultOptions when the options object is missing.
func (s *Script) UnmarshalJSON(data []byte) error {
	type plain Script
	p := plain{Options: DefaultOptions()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Script(p)
	return nil
}
