package config

import "os"

type AppConfig struct {
	DebugMode      bool
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	GraderConfig   *GraderConfig
	SweeperConfig  *SweeperConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		GraderConfig:   NewGraderConfig(),
		SweeperConfig:  NewSweeperConfig(),
	}
}

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
