package runner

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/torosent/surgefire/internal/assertion"
	"github.com/torosent/surgefire/internal/injection"
	"github.com/torosent/surgefire/internal/metrics"
	"github.com/torosent/surgefire/internal/scenario"
	"github.com/torosent/surgefire/internal/transport"
)

// DefaultGracePeriod bounds how long in-flight requests may run once the
// maximum duration has expired.
const DefaultGracePeriod = 5 * time.Second

// DefaultOverrunTolerance is the spawn lag tolerated before a user start
// counts as a schedule overrun.
const DefaultOverrunTolerance = 100 * time.Millisecond

// Injection binds a validated scenario to the profile that starts its users.
type Injection struct {
	Scenario *scenario.Scenario
	Profile  injection.Profile
}

// Options configure the Runner.
type Options struct {
	Injections []Injection           // scenarios to run, each with its own profile (required)
	Transport  transport.Transport   // sends requests (required)
	Assertions []assertion.Assertion // evaluated once every user has stopped
	Collector  *metrics.Collector    // optional; created on the runner clock when nil
	Clock      clockwork.Clock       // optional; real clock when nil
	Logger     *zap.Logger           // optional; no-op when nil

	BaseURL string            // prefix for relative request paths
	Headers map[string]string // sent with every request, step headers win

	MaxDuration time.Duration // 0 runs until every profile and user completes
	GracePeriod time.Duration // in-flight window after MaxDuration

	OverrunTolerance time.Duration // spawn lag tolerated before counting an overrun
	FailOnOverrun    bool          // add a violation to the verdict when overruns occurred

	// Seed makes pause ranges reproducible. Zero seeds from the run ID.
	Seed uint64
}

func (o *Options) normalize() {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Collector == nil {
		o.Collector = metrics.NewCollector(o.Clock)
	}
	if o.MaxDuration < 0 {
		o.MaxDuration = 0
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.OverrunTolerance <= 0 {
		o.OverrunTolerance = DefaultOverrunTolerance
	}
	for len(o.BaseURL) > 0 && o.BaseURL[len(o.BaseURL)-1] == '/' {
		o.BaseURL = o.BaseURL[:len(o.BaseURL)-1]
	}
}
