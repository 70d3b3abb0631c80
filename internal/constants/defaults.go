package constants

// Default server configuration values
const (
	DefaultServerPort             = 3000
	DefaultServerReadTimeoutSec   = 15
	DefaultServerWriteTimeoutSec  = 15
	DefaultServerIdleTimeoutSec   = 60
	DefaultGracefulShutdownSec    = 30
	ServerErrorChannelSize        = 1
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default pagination values
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Bulk send defaults
const (
	DefaultBulkSendDelayMs = 1000
	MaxBulkSendBatch       = 50
)

// Event bus defaults
const (
	DefaultSubscriberBuffer = 64
)

// Encryption settings
const (
	EncryptionSalt       = "baileys-api-payload-salt-v1"
	LookupNoncePrefix    = "baileys-api-lookup"
	EncryptionSecretEnv  = "BAILEYS_API_ENCRYPTION_SECRET"
	EncryptionEnabledEnv = "BAILEYS_API_ENABLE_ENCRYPTION"
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 8
)
