package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS connects to the event broker used for tutor and quiz events.
func ConnectNATS(address string) (*nats.Conn, error) {
	conn, err := nats.Connect(address, nats.Name("tawjihi-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
