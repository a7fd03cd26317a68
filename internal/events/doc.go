// Package events carries the progress of an active learning run to its
// sinks.
//
// The learning loop emits one LoopEvent per iteration; handlers registered
// on an emitter persist them (result files, the optional database) without
// the loop knowing where the results go.
package events
