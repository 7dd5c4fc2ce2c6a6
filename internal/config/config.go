// Package config loads server configuration from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is everything the server needs at startup.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string
	JWTSecret   string

	LeaveGrace          time.Duration
	ConnectionLostGrace time.Duration
	KickVoteTTL         time.Duration
	RoundRestartDelay   time.Duration

	SweepInterval  time.Duration
	SessionMaxIdle time.Duration
}

// Load reads the environment. A missing .env file is fine in production.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment")
	}
	return Config{
		ListenAddr:  getString("LISTEN_ADDR", ":8080"),
		DatabaseURL: getString("DATABASE_URL", ""),
		RedisAddr:   getString("REDIS_ADDR", ""),
		RedisPass:   getString("REDIS_PASSWORD", ""),
		JWTSecret:   getString("JWT_SECRET", "dev-secret-change-me"),

		LeaveGrace:          getDuration("LEAVE_GRACE", 30*time.Second),
		ConnectionLostGrace: getDuration("CONNECTION_LOST_GRACE", 60*time.Second),
		KickVoteTTL:         getDuration("KICK_VOTE_TTL", 30*time.Second),
		RoundRestartDelay:   getDuration("ROUND_RESTART_DELAY", 10*time.Second),

		SweepInterval:  getDuration("SWEEP_INTERVAL", 1*time.Hour),
		SessionMaxIdle: getDuration("SESSION_MAX_IDLE", 24*time.Hour),
	}
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	logrus.WithField("key", key).Warn("unparseable duration, using default")
	return fallback
}
