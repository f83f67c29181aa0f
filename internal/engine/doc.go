// Package engine implements the unidirectional state runtime: actions reduce
// into state mutations plus declarative effects, and the Model's interpreter
// executes those effects with cancellation, concurrency and timing support.
//
// The flow is strictly one-directional:
//
//	input --transform--> actions --reduce--> (state', effects)
//	effects --interpret--> operations --result--> actions ...
//
// Effects are values, not behavior. A reducer never performs I/O; it returns
// Effect descriptions that the Model executes. Run effects spawn operations
// on background goroutines; their results are funneled back through the same
// queue as every other action, so all state mutation stays serialized.
//
// Queue draining is single-flight and breadth-first: effects produced while
// draining are appended to the tail of the active queue, never processed
// inline. If action A yields dispatch(B) and dispatch(C), and B yields
// dispatch(D), the observed action order is A, B, C, D.
//
// Every externally performed action is stamped with a perform token; actions
// cascading from its effects inherit the same token, giving observers (and
// the journal) a correlation key from root input to leaf effect.
package engine
