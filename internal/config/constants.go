package config

import "time"

// Timeouts used across cmd and the server.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint probing
	LoadTimeout      = 45 * time.Second // one full contract load
	TxConfirmTimeout = 3 * time.Minute  // standard transaction confirmation wait
)
