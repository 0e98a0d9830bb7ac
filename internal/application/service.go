package application

import (
	"time"

	"github.com/stillwaterhq/datacore/internal/ports"
)

type Service struct {
	cfg           Config
	journal       ports.JournalRepository
	userKeys      ports.UserKeyRepository
	revocations   ports.RevocationRepository
	exports       ports.ExportRepository
	idempotency   ports.IdempotencyRepository
	locks         ports.ResourceLock
	filter        ports.RevocationFilter
	invalidations ports.InvalidationBus
	local         ports.LocalCache
	vault         ports.KeyVault
	cipher        ports.FieldCipher
	verifier      ports.TokenVerifier
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Journal       ports.JournalRepository
	UserKeys      ports.UserKeyRepository
	Revocations   ports.RevocationRepository
	Exports       ports.ExportRepository
	Idempotency   ports.IdempotencyRepository
	Locks         ports.ResourceLock
	Filter        ports.RevocationFilter
	Invalidations ports.InvalidationBus
	Local         ports.LocalCache
	Vault         ports.KeyVault
	Cipher        ports.FieldCipher
	Verifier      ports.TokenVerifier
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.SourceService == "" {
		cfg.SourceService = "datacore"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}
	if cfg.ExportLockTTL <= 0 {
		cfg.ExportLockTTL = 30 * time.Second
	}
	if cfg.ExportTTL <= 0 {
		cfg.ExportTTL = 7 * 24 * time.Hour
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	return &Service{
		cfg:           cfg,
		journal:       deps.Journal,
		userKeys:      deps.UserKeys,
		revocations:   deps.Revocations,
		exports:       deps.Exports,
		idempotency:   deps.Idempotency,
		locks:         deps.Locks,
		filter:        deps.Filter,
		invalidations: deps.Invalidations,
		local:         deps.Local,
		vault:         deps.Vault,
		cipher:        deps.Cipher,
		verifier:      deps.Verifier,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
