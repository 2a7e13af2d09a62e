package service

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

func newTestCodec(t *testing.T) *envelope.Codec {
	t.Helper()
	key := make([]byte, envelope.KeySize)
	for i := range key {
		key[i] = byte(0x40 + i)
	}
	km, err := envelope.NewKeyMaterial(key)
	if err != nil {
		t.Fatalf("NewKeyMaterial: %v", err)
	}
	c, err := envelope.New(km)
	if err != nil {
		t.Fatalf("envelope.New: %v", err)
	}
	return c
}

type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func testRegistryConfig() RegistryConfig {
	clock := &stepClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
	return RegistryConfig{
		Slot: slot.Config{
			MaxSavePoints: 3,
			AutoPrune:     true,
			GameVersion:   "1.0.0",
			Clock:         clock.Now,
			Rand:          rand.New(rand.NewPCG(3, 5)),
			Logger:        logger.NewNop(),
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(newTestCodec(t), testRegistryConfig())
}
