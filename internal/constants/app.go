package constants

// Redis Key Prefixes
const (
	KeyPrefix          = "sprintdesk:"
	KeyRateLimit       = KeyPrefix + "ratelimit:"
	KeyRealtimeChannel = KeyPrefix + "events"
)
