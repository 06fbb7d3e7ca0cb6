package lead

// MaxSelfRescheduled caps how many rescheduled-callback leads an agent may
// keep assigned to themselves instead of returning to the team pool.
const MaxSelfRescheduled = 5

// CanSelfAssign decides whether an agent may keep a rescheduled lead assigned
// to themselves. Pure policy, independent of any presentation layer; the state
// machine calls it with the agent's current self-kept rescheduled count and
// forces the team pool when it returns false.
func CanSelfAssign(agentCurrentRescheduledCount int) bool {
	return agentCurrentRescheduledCount < MaxSelfRescheduled
}
