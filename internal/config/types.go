package config

// Config holds all sav3 configuration.
type Config struct {
	DefaultNetwork string `json:"default_network"`
	DefaultWallet  string `json:"default_wallet"`
	// Solidity is the compiler version the sale contracts target. Only used
	// when reporting explorer verification status.
	Solidity     string `json:"solidity"`
	MaxBatchSize uint64 `json:"max_batch_size"`
	MaxSupply    uint64 `json:"max_supply"`
	// CustomRPCs are tried before the registry URL of a network.
	CustomRPCs map[string][]string `json:"custom_rpcs"`
	// RPCAlgorithm chooses among several RPCs: "failover" or "fastest".
	RPCAlgorithm string `json:"rpc_algorithm"`

	// internal: config dir path used for Save()
	configDir string
}
