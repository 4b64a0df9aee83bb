// execute.go - the cycle-budgeted execution loop driven by an external
// Scheduler (spec.md §4.8).
//
// Grounded on Run()/Execute() in cpu_x86_runner.go, replacing the
// teacher's free-running goroutine-plus-perf-counter loop with a
// scheduler-driven cycle budget: each outer iteration asks the scheduler
// how much simulated time it may consume, converts that to a cycle
// budget, runs Step until the budget (or a reschedule request) is hit,
// then reports the cycles actually spent back as elapsed time.
package pcxt86

// SetTraceHook installs (or, with nil, removes) a function called before
// every Step while the execution loop is running.
func (c *CPU) SetTraceHook(hook func(c *CPU)) { c.traceHook = hook }

// ticksToCycleBudget converts an upper bound on scheduler ticks into a
// cycle count, rounding up so the loop never returns before the
// requested time has elapsed.
func (c *CPU) ticksToCycleBudget(ticks int64, clockRate int64) int64 {
	if ticks <= 0 {
		ticks = 1
	}
	num := ticks * c.cyclesPerSecond
	return (num + clockRate - 1) / clockRate
}

// cyclesToTicks converts cycles actually executed back into scheduler
// ticks, carrying the division remainder in leftCycleFrags so repeated
// conversions do not drift the simulated clock over a long run.
func (c *CPU) cyclesToTicks(cycles uint64, clockRate int64) int64 {
	num := int64(cycles)*clockRate + c.leftCycleFrags
	ticks := num / c.cyclesPerSecond
	c.leftCycleFrags = num % c.cyclesPerSecond
	return ticks
}

// RunSlice executes at most one scheduler period's worth of cycles and
// reports the cycles actually spent back via sched.AdvanceTime, then
// returns. machine.go calls this in a loop it can interrupt between
// slices (via context cancellation); Run below is a convenience wrapper
// for callers with no need to interrupt the loop externally.
func (c *CPU) RunSlice(sched Scheduler) *CPUFault {
	c.SetScheduler(sched)
	clockRate := sched.ClockRate()
	budget := c.ticksToCycleBudget(sched.TimeToNextEvent(), clockRate)

	c.cycl = 0
	c.reschedule = false
	for c.cycl < uint64(budget) && !c.reschedule {
		if c.traceHook != nil {
			c.traceHook(c)
		}
		if fault := c.Step(); fault != nil {
			sched.AdvanceTime(c.cyclesToTicks(c.cycl, clockRate))
			return fault
		}
	}

	sched.AdvanceTime(c.cyclesToTicks(c.cycl, clockRate))
	return nil
}

// Run drives the CPU against sched, slice after slice, until a fault
// occurs.
func (c *CPU) Run(sched Scheduler) *CPUFault {
	for {
		if fault := c.RunSlice(sched); fault != nil {
			return fault
		}
	}
}
