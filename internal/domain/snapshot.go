package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotStatus is the recorded outcome of a scheduler run
type SnapshotStatus string

const (
	SnapshotStatusSuccess SnapshotStatus = "success"
	SnapshotStatusFailure SnapshotStatus = "failure"
)

// PortfolioSnapshot is a point-in-time recording of total portfolio value,
// appended by the snapshot scheduler and used to build historical charts.
type PortfolioSnapshot struct {
	ID         uuid.UUID
	CapturedAt time.Time
	TotalValue decimal.Decimal
}

// SnapshotLog records the outcome of one scheduler run, success or failure,
// for operability and test visibility. Exactly one entry is written per run.
type SnapshotLog struct {
	ID        uuid.UUID
	Timestamp time.Time
	Status    SnapshotStatus
	Message   string
}
