// Package exit is the result outbox. Each output the session produces
// is written here before it is shipped, so a slow or absent Kafka
// broker never stalls matching.
package exit
