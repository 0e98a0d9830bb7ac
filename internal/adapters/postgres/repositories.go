package postgres

import (
	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Outbox      ports.OutboxRepository
	Journal     ports.JournalRepository
	UserKeys    ports.UserKeyRepository
	Revocations ports.RevocationRepository
	Exports     ports.ExportRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Outbox:      &outboxRepository{db: db},
		Journal:     &journalRepository{db: db},
		UserKeys:    &userKeyRepository{db: db},
		Revocations: &revocationRepository{db: db},
		Exports:     &exportRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
