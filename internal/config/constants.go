package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
// These are conservative upper bounds; actual gas used will be lower.
const (
	GasLimitAdminCall = uint64(80_000)    // pause, price, root and window setters
	GasLimitMint      = uint64(250_000)   // one mint transaction at max batch size
	GasLimitDeploy    = uint64(4_000_000) // sale contract creation
)

// Timeout constants used across cmd.
const (
	RPCTimeout          = 15 * time.Second // single read round trip
	TxConfirmTimeout    = 3 * time.Minute  // standard transaction confirmation wait
	TxDeployTimeout     = 5 * time.Minute  // contract deployment confirmation wait
	ReceiptPollInterval = 2 * time.Second
)
