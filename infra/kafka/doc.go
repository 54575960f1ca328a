// Package kafka adapts a Kafka topic into a command source for the
// session loop.
package kafka
