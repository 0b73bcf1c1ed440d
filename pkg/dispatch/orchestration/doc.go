// Package orchestration runs orchestrator functions against replayed
// history. See dispatcher.go for the turn loop and context.go for the
// facade orchestrator code is written against.
package orchestration
