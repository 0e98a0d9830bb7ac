package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

func (s *Service) CreateJournalEntry(ctx context.Context, ident Identity, req JournalEntryRequest, idempotencyKey string) (JournalEntryView, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateJournalEntry(title, req.Body, req.Mood); err != nil {
		return JournalEntryView{}, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		replayID, replayed, err := s.reserveIdempotent(ctx, idempotencyKey, hashRequest(req))
		if err != nil {
			return JournalEntryView{}, err
		}
		if replayed {
			return s.GetJournalEntry(ctx, ident, replayID)
		}
	}

	enc, err := s.encryptionContext(ctx, ident.UserID)
	if err != nil {
		return JournalEntryView{}, err
	}
	titleEnc, err := enc.EncryptField([]byte(title))
	if err != nil {
		return JournalEntryView{}, err
	}
	bodyEnc, err := enc.EncryptField([]byte(req.Body))
	if err != nil {
		return JournalEntryView{}, err
	}

	now := s.nowFn()
	entry := domain.JournalEntry{
		EntryID:   uuid.New(),
		UserID:    ident.UserID,
		Title:     title,
		Body:      req.Body,
		Mood:      req.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	event, err := s.changeEvent(entry, domain.ChangeCreated, now)
	if err != nil {
		return JournalEntryView{}, fmt.Errorf("assemble change event: %w", err)
	}

	rec, err := s.journal.CreateWithEvents(ctx, ports.JournalWriteParams{
		EntryID:  entry.EntryID,
		UserID:   entry.UserID,
		TitleEnc: titleEnc,
		BodyEnc:  bodyEnc,
		Mood:     entry.Mood,
		At:       now,
	}, []ports.OutboxEvent{event})
	if err != nil {
		return JournalEntryView{}, err
	}

	if idempotencyKey != "" {
		s.completeIdempotent(ctx, idempotencyKey, 201, rec.EntryID)
	}
	s.invalidateJournalIndex(ctx, ident.UserID)

	return JournalEntryView{
		EntryID:   rec.EntryID,
		Title:     entry.Title,
		Body:      entry.Body,
		Mood:      rec.Mood,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) GetJournalEntry(ctx context.Context, ident Identity, entryID uuid.UUID) (JournalEntryView, error) {
	rec, err := s.journal.GetByID(ctx, entryID, ident.UserID)
	if err != nil {
		return JournalEntryView{}, err
	}

	enc, err := s.existingEncryptionContext(ctx, ident.UserID)
	if err != nil {
		return JournalEntryView{}, err
	}
	title, err := enc.DecryptField(rec.TitleEnc)
	if err != nil {
		return JournalEntryView{}, err
	}
	body, err := enc.DecryptField(rec.BodyEnc)
	if err != nil {
		return JournalEntryView{}, err
	}

	return JournalEntryView{
		EntryID:   rec.EntryID,
		Title:     string(title),
		Body:      string(body),
		Mood:      rec.Mood,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// ListJournalEntries serves the per-user index. The index carries no
// decrypted content, which is what allows it to pass through the local cache.
func (s *Service) ListJournalEntries(ctx context.Context, ident Identity, limit, offset int) (JournalIndex, error) {
	if limit <= 0 || limit > 100 {
		limit = s.cfg.ListLimit
	}
	if offset < 0 {
		offset = 0
	}

	cacheKey := journalIndexCacheKey(ident.UserID, limit, offset)
	if raw, ok := s.local.Get(cacheKey); ok {
		var cached JournalIndex
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.local.Delete(cacheKey)
	}

	rows, err := s.journal.ListByUser(ctx, ident.UserID, limit, offset)
	if err != nil {
		return JournalIndex{}, err
	}

	index := JournalIndex{
		Entries: make([]JournalIndexItem, 0, len(rows)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, row := range rows {
		index.Entries = append(index.Entries, toJournalIndexItem(row))
	}

	if raw, err := json.Marshal(index); err == nil {
		s.local.Set(cacheKey, raw, s.cfg.CacheTTL)
	}
	return index, nil
}

func (s *Service) UpdateJournalEntry(ctx context.Context, ident Identity, entryID uuid.UUID, req JournalEntryRequest) (JournalEntryView, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateJournalEntry(title, req.Body, req.Mood); err != nil {
		return JournalEntryView{}, err
	}

	current, err := s.journal.GetByID(ctx, entryID, ident.UserID)
	if err != nil {
		return JournalEntryView{}, err
	}

	enc, err := s.encryptionContext(ctx, ident.UserID)
	if err != nil {
		return JournalEntryView{}, err
	}
	titleEnc, err := enc.EncryptField([]byte(title))
	if err != nil {
		return JournalEntryView{}, err
	}
	bodyEnc, err := enc.EncryptField([]byte(req.Body))
	if err != nil {
		return JournalEntryView{}, err
	}

	now := s.nowFn()
	entry := domain.JournalEntry{
		EntryID:   current.EntryID,
		UserID:    ident.UserID,
		Title:     title,
		Body:      req.Body,
		Mood:      req.Mood,
		CreatedAt: current.CreatedAt,
		UpdatedAt: now,
	}
	event, err := s.changeEvent(entry, domain.ChangeUpdated, now)
	if err != nil {
		return JournalEntryView{}, fmt.Errorf("assemble change event: %w", err)
	}

	rec, err := s.journal.UpdateWithEvents(ctx, ports.JournalWriteParams{
		EntryID:  entry.EntryID,
		UserID:   entry.UserID,
		TitleEnc: titleEnc,
		BodyEnc:  bodyEnc,
		Mood:     entry.Mood,
		At:       now,
	}, []ports.OutboxEvent{event})
	if err != nil {
		return JournalEntryView{}, err
	}

	s.invalidateJournalIndex(ctx, ident.UserID)

	return JournalEntryView{
		EntryID:   rec.EntryID,
		Title:     entry.Title,
		Body:      entry.Body,
		Mood:      rec.Mood,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) DeleteJournalEntry(ctx context.Context, ident Identity, entryID uuid.UUID) error {
	now := s.nowFn()
	entry := domain.JournalEntry{EntryID: entryID, UserID: ident.UserID}
	event, err := s.changeEvent(entry, domain.ChangeDeleted, now)
	if err != nil {
		return fmt.Errorf("assemble change event: %w", err)
	}

	if err := s.journal.DeleteWithEvents(ctx, entryID, ident.UserID, []ports.OutboxEvent{event}); err != nil {
		return err
	}
	s.invalidateJournalIndex(ctx, ident.UserID)
	return nil
}
