package types

// Liveness reply published on the reply topic for each ina/state message.
type StatusReply struct {
	Status string `json:"status"`
}

const StatusAlive = "alive"
