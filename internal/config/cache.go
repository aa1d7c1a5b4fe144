package config

import "time"

// UserCacheConfig defines settings for the Redis read-through cache in
// front of the user store. When Enabled is false or no Redis client is
// configured, lookups go straight to the store. TTL bounds how long a
// role or password change may take to become visible to the gate.
type UserCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadUserCacheConfig reads environment variables to build a
// UserCacheConfig. Defaults are used when variables are not set.
func LoadUserCacheConfig() UserCacheConfig {
	c := UserCacheConfig{
		Enabled: envBool("USER_CACHE_ENABLED", true),
		TTL:     envDur("USER_CACHE_TTL", 30*time.Second),
		Prefix:  envStr("USER_CACHE_PREFIX", "users"),
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c
}
