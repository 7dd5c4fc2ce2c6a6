// Package cache publishes committed game actions to a Redis stream for the
// historian. Publishing is fire-and-forget: a failure is logged, never
// surfaced to the session.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

const actionStream = "game:actions"

// ActionRecord is one committed command, in the order it was applied.
type ActionRecord struct {
	RoomCode  string             `json:"roomCode"`
	PlayerID  uuid.UUID          `json:"playerId"`
	Command   models.CommandType `json:"command"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Historian writes action records to Redis.
type Historian struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewHistorian connects the action log. Returns nil when addr is empty so
// callers can run without Redis.
func NewHistorian(addr, password string) *Historian {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &Historian{rdb: rdb, log: logrus.WithField("component", "historian")}
}

// Record pushes one action asynchronously.
func (h *Historian) Record(code string, playerID uuid.UUID, command models.CommandType, payload json.RawMessage) {
	rec := ActionRecord{
		RoomCode:  code,
		PlayerID:  playerID,
		Command:   command,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		body, err := json.Marshal(rec)
		if err != nil {
			h.log.WithError(err).Error("failed encoding action record")
			return
		}
		if err := h.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: actionStream,
			Values: map[string]interface{}{"record": body},
		}).Err(); err != nil {
			h.log.WithError(err).WithField("room", rec.RoomCode).Error("failed publishing action record")
		}
	}()
}

// Close releases the Redis connection.
func (h *Historian) Close() error {
	if h == nil {
		return nil
	}
	return h.rdb.Close()
}
