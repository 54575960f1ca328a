// Package entry is the command journal: every command the session
// accepts is framed, checksummed and appended here before it is applied.
// Replay reads the journal back for audit re-execution.
package entry
