package config

import "os"

// parseEnv overlays values that are usually injected by the deployment
// environment rather than written to a config file.
//
//	ENCRYPTION_KEY  master key for stored secrets (base64)
//	DATABASE_DSN    PostgreSQL DSN
//	SECRET_KEY      JWT HMAC secret
//	NATS_URL        NATS server URL
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("ENCRYPTION_KEY"); ok {
		config.EncryptionKey = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("NATS_URL"); ok {
		config.NATSURL = v
	}
}
