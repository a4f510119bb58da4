// Package messaging publishes and consumes domain events through a
// broker-agnostic API. Drivers: Kafka, NATS, NSQ, Google Pub/Sub and an
// in-process memory broker for single-instance deployments and tests.
//
// Every driver delivers a message to exactly one consumer per group, so
// replicas sharing a group name split the work.
package messaging
