package v1alpha1

import (
	"fmt"
	"time"
)

// Duration is a time.Duration encoded as a Go duration string ("250ms", "1m30s") in both JSON and TOML.
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}
