package repository

import (
	"context"
	"database/sql"
	"time"

	"sensor_monitor/internal/models"
)

// AlarmRepo is the append-only alarm journal.
type AlarmRepo interface {
	Append(ctx context.Context, e models.AlarmEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.AlarmEvent, error)
}

type Repository struct {
	AlarmRepo AlarmRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		AlarmRepo: NewAlarmSQLite(db),
	}
}
