package feedguard

// DefaultMemoryMaxCost bounds the in-process cache when Config leaves
// MemoryMaxCost at zero. Cost is counted in entries (each cached payload
// costs 1), so this is roughly the number of distinct endpoint+parameter
// combinations kept warm at once.
const DefaultMemoryMaxCost = 10_000

// DefaultAPIKeyHeader is the header the metered sports API expects the key
// under.
const DefaultAPIKeyHeader = "x-apisports-key"

// DefaultConfig returns the recommended starting configuration: in-process
// topology with the built-in TTL table, circuit and backoff schedule. Callers
// fill in BaseURL and APIKey and flip Backend for multi-process deployments.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendMemory,
		APIKeyHeader:  DefaultAPIKeyHeader,
		MemoryMaxCost: DefaultMemoryMaxCost,
	}
}
