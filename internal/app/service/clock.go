package service

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstrae el tiempo para que los trackers sean deterministas en tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
