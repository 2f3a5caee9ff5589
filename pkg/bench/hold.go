package bench

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
)

// HoldSampler draws the simulated critical section duration of each operation.
type HoldSampler interface {
	Next() time.Duration
}

type constantHold time.Duration

func (c constantHold) Next() time.Duration {
	return time.Duration(c)
}

type uniformHold struct {
	min, max time.Duration
	rng      *rand.Rand
}

func (u *uniformHold) Next() time.Duration {
	if u.max == u.min {
		return u.min
	}
	// the span fits in a uint64 even when it is math.MaxInt64
	return u.min + time.Duration(u.rng.Uint64N(uint64(u.max-u.min)+1))
}

type exponentialHold struct {
	mean time.Duration
	rng  *rand.Rand
}

func (e *exponentialHold) Next() time.Duration {
	return time.Duration(e.rng.ExpFloat64() * float64(e.mean))
}

// NewHoldSampler builds a sampler for spec. Samplers are not safe for concurrent use, each worker
// gets its own stream derived from seed.
func NewHoldSampler(spec v1alpha1.HoldSpec, seed, stream uint64) (HoldSampler, error) {
	switch spec.Distribution {
	case v1alpha1.HoldConstant, "":
		return constantHold(spec.Mean.Duration), nil
	case v1alpha1.HoldUniform:
		return &uniformHold{
			min: spec.Min.Duration,
			max: spec.Max.Duration,
			rng: rand.New(rand.NewPCG(seed, stream)),
		}, nil
	case v1alpha1.HoldExponential:
		return &exponentialHold{
			mean: spec.Mean.Duration,
			rng:  rand.New(rand.NewPCG(seed, stream)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown hold distribution '%s'", spec.Distribution)
	}
}
