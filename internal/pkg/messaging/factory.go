package messaging

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMemory = "memory"
	DriverNSQ    = "nsq"
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

type FactoryOptions struct {
	Memory MemoryConfig
	NSQ    NSQConfig
	NATS   NATSConfig
	Kafka  KafkaConfig
}

var drivers = map[string]func(FactoryOptions) (Messaging, error){
	DriverMemory: func(o FactoryOptions) (Messaging, error) { return NewMemory(o.Memory), nil },
	DriverNSQ:    func(o FactoryOptions) (Messaging, error) { return NewNSQ(o.NSQ) },
	DriverNATS:   func(o FactoryOptions) (Messaging, error) { return NewNATS(o.NATS) },
	DriverKafka:  func(o FactoryOptions) (Messaging, error) { return NewKafka(o.Kafka) },
}

// NewFromDriver builds the client registered under driver.
func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	build, ok := drivers[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return build(opts)
}
