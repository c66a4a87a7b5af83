// Package runner executes load test runs for surgefire.
//
// A run is a set of injections, each pairing a scenario with an injection
// profile. The runner:
//   - Starts virtual users at the offsets their profile schedules
//   - Walks each user through its scenario with a private session
//   - Records one outcome per request step that ran to completion
//   - Evaluates assertions over the final summary
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Injections: []runner.Injection{{Scenario: sc, Profile: profile}},
//		Transport:  transport.NewHTTP(30 * time.Second),
//		Assertions: assertions,
//		BaseURL:    "http://localhost:8080",
//	})
//	report, err := r.Run(ctx)
//
// # Scheduling
//
// Every injection runs its own timing loop against a shared start instant.
// A user that starts later than its scheduled offset by more than
// OverrunTolerance is a schedule overrun. Overruns are reported as a warning,
// or as a violation when FailOnOverrun is set.
//
// # Stopping
//
// When MaxDuration expires no further users or steps start. Requests in
// flight get GracePeriod to finish and are recorded; requests still running
// after it are cancelled and dropped. Cancelling the run context behaves the
// same way and marks the report as interrupted.
//
// # Failures
//
// Request failures are soft: the outcome is recorded as unsuccessful and the
// user moves on, unless the request sets ExitOnFailure. A request that cannot
// be built because the session lacks a variable is recorded as an
// unsuccessful outcome without a status code.
package runner
