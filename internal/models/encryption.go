package models

// Parameters for at-rest payload encryption (AES-256-GCM, PBKDF2 key
// derivation).
const (
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000
)
