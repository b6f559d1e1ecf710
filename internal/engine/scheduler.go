package engine

import (
	"math/rand"
	"sync"
	"time"

	"peerloop/internal/config"
	"peerloop/internal/logging"
)

// =============================================================================
// DELIVERY SCHEDULER
// =============================================================================
//
// Delays mimic human typing and arrival rhythms. A single reply gets a
// length-banded delay; a welcome ensemble staggers the coach first, then
// peers on a widening, jittered cadence. The constants are tuned "feel"
// values and live in config.

// DeliveryScheduler computes display delays. Safe for concurrent use.
type DeliveryScheduler struct {
	cfg config.EngineConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDeliveryScheduler creates a scheduler using the injected RNG.
func NewDeliveryScheduler(cfg config.EngineConfig, rng *rand.Rand) *DeliveryScheduler {
	return &DeliveryScheduler{cfg: cfg, rng: rng}
}

// SingleDelay returns the delay for a lone reply, in three bands by reply
// length: short replies arrive fast, long ones take plausible typing time.
func (d *DeliveryScheduler) SingleDelay(replyLen int) time.Duration {
	var lo, hi int
	switch {
	case replyLen < d.cfg.ShortReplyChars:
		lo, hi = d.cfg.ShortDelayMinMillis, d.cfg.ShortDelayMaxMillis
	case replyLen < d.cfg.MediumReplyChars:
		lo, hi = d.cfg.MediumDelayMinMillis, d.cfg.MediumDelayMaxMillis
	default:
		lo, hi = d.cfg.LongDelayMinMillis, d.cfg.LongDelayMaxMillis
	}
	delay := d.uniformMillis(lo, hi)
	logging.SchedulerDebug("single delay %v for %d chars", delay, replyLen)
	return delay
}

// WelcomeDelays returns relative-to-previous delays for an ensemble of
// count replies, coach first. The coach lands within its base window; peer
// i waits base + i*step plus independent jitter. Because the jitter ceiling
// stays below the step, the sequence is non-decreasing by construction:
// replies arrive in persona-selection order with irregular spacing.
func (d *DeliveryScheduler) WelcomeDelays(count int) []time.Duration {
	if count <= 0 {
		return nil
	}
	delays := make([]time.Duration, count)
	delays[0] = d.uniformMillis(d.cfg.WelcomeCoachDelayMinMillis, d.cfg.WelcomeCoachDelayMaxMillis)

	for i := 1; i < count; i++ {
		base := d.cfg.WelcomePeerBaseMillis + (i-1)*d.cfg.WelcomePeerStepMillis
		jitter := d.uniformMillis(0, d.cfg.WelcomePeerJitterMillis)
		delays[i] = time.Duration(base)*time.Millisecond + jitter
	}

	logging.SchedulerDebug("welcome delays for %d replies: %v", count, delays)
	return delays
}

// uniformMillis draws uniformly from [lo, hi] milliseconds.
func (d *DeliveryScheduler) uniformMillis(lo, hi int) time.Duration {
	if hi < lo {
		hi = lo
	}
	d.mu.Lock()
	ms := lo
	if span := hi - lo; span > 0 {
		ms += d.rng.Intn(span + 1)
	}
	d.mu.Unlock()
	return time.Duration(ms) * time.Millisecond
}
