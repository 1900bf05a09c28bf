package postgres

import "fmt"

// SessionStoreConfig holds store level settings. Pool configuration is
// handled separately via PoolConfig.
type SessionStoreConfig struct {
	// QueryTimeoutSeconds bounds every statement issued by the store.
	// Default: 10 seconds
	QueryTimeoutSeconds int32
}

// Validate checks that the configuration is valid.
func (c *SessionStoreConfig) Validate() error {
	if c.QueryTimeoutSeconds < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *SessionStoreConfig) ApplyDefaults() {
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 10
	}
}
