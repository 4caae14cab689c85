// Package messaging publishes and consumes events through one broker-agnostic
// interface.
//
// Drivers exist for NSQ, Kafka, NATS and an in-process queue. NewFromDriver
// picks one by name, so usecases never import a broker client directly.
package messaging
