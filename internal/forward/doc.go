// Package forward publishes recorded events to an external sink.
//
// Forwarding runs after an event is durably stored and never blocks a
// session: Enqueue drops the event when the queue is full. A background
// loop batches queued events and publishes them with exponential backoff.
// The Kafka sink is built on segmentio/kafka-go.
package forward
