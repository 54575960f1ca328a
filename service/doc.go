// Package service runs a trading session: the single goroutine that owns
// the matching engine and applies commands to it one at a time.
//
// Commands arrive from a Source (stdin lines or a Kafka topic), are
// journaled, applied, and their results written to the session output and
// the result outbox. Snapshot queries from other goroutines are answered
// by the same loop, between commands.
package service
