package engine

// DefaultMaxEffectsPerDrain bounds how many effects a single drain pass may
// process. This prevents a runaway reducer (one that keeps dispatching) from
// spinning the loop forever; unlike cyclic-firing detection, a simple cap is
// safe here because reducers legitimately re-dispatch identical actions.
const DefaultMaxEffectsPerDrain = 1000

// drainQuota counts effects processed within one drain pass against a limit.
// A fresh quota is created per pass, so the cap applies to each external
// perform's cascade, not to the model's lifetime.
type drainQuota struct {
	max  int
	used int
}

// check counts one effect and reports whether the pass is still within quota.
func (q *drainQuota) check() bool {
	q.used++
	return q.used <= q.max
}
