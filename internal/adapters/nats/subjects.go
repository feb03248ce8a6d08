package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects carried by the STREET_SCORES stream.
const (
	StreamName            = "STREET_SCORES"
	SubjectStreetsScored  = "streets.scored"
	SubjectRescoreRequest = "streets.rescore.requested"

	rescoreDurable = "rescore-worker"
)

// RescoreRequest is the payload of SubjectRescoreRequest.
type RescoreRequest struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("streetrisk"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
