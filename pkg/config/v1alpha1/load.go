package v1alpha1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/alexandreLamarre/padlock/pkg/lock"
)

// Decode reads a JSON or TOML benchmark config on top of the defaults.
func Decode(data []byte) (*BenchmarkConfig, error) {
	config := Default()
	r := bytes.NewReader(data)
	jsonErr := json.NewDecoder(r).Decode(config)
	if jsonErr == nil {
		return config, nil
	}
	config = Default()
	_, tomlErr := toml.Decode(string(data), config)
	if tomlErr == nil {
		return config, nil
	}
	return nil, fmt.Errorf("failed to decode config as JSON: %w, failed to decode config as TOML: %w", jsonErr, tomlErr)
}

func Load(path string) (*BenchmarkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Resolve interprets a benchmark argument: empty selects the defaults, an integer selects the
// defaults with that many workers, anything else is a config file path.
func Resolve(arg string) (*BenchmarkConfig, error) {
	if arg == "" {
		return Default(), nil
	}
	if workers, err := strconv.Atoi(arg); err == nil {
		if workers <= 0 {
			return nil, fmt.Errorf("worker count must be positive, got %d", workers)
		}
		config := Default()
		config.Workers = workers
		return config, nil
	}
	return Load(arg)
}

func (c *BenchmarkConfig) Validate() error {
	var errs []error
	if c.Backend == "" {
		errs = append(errs, errors.New("backend is required"))
	}
	if !lock.Fairness(c.Fairness).Valid() {
		errs = append(errs, fmt.Errorf("unknown fairness '%s'", c.Fairness))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Operations <= 0 && c.Duration.Duration <= 0 {
		errs = append(errs, errors.New("one of operations or duration must be positive"))
	}
	if err := c.Hold.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AcquireTimeout.Duration < 0 || c.Deadline.Duration < 0 || c.RetryInterval.Duration < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.Runs <= 0 {
		errs = append(errs, errors.New("runs must be positive"))
	}
	if c.Report.Format != FormatText && c.Report.Format != FormatTable {
		errs = append(errs, fmt.Errorf("unknown report format '%s'", c.Report.Format))
	}
	return errors.Join(errs...)
}

func (h HoldSpec) Validate() error {
	for _, d := range []Duration{h.Mean, h.Min, h.Max} {
		if d.Duration > MaxHold {
			return fmt.Errorf("hold durations must not exceed %s, got %s", MaxHold, d)
		}
	}
	switch h.Distribution {
	case HoldConstant, HoldExponential:
		if h.Mean.Duration < 0 {
			return errors.New("hold mean must not be negative")
		}
	case HoldUniform:
		if h.Min.Duration < 0 || h.Max.Duration < h.Min.Duration {
			return fmt.Errorf("invalid uniform hold bounds [%s, %s]", h.Min, h.Max)
		}
	default:
		return fmt.Errorf("unknown hold distribution '%s'", h.Distribution)
	}
	return nil
}
