// Package workerpool provides the bounded pool that blocking SDK and network
// calls run on.
//
// A Pool is owned by exactly one tool (or by the shared Google auth manager).
// Shutdown waits for in-flight calls, bounded by its context, which is what
// tool cleanup relies on.
package workerpool
