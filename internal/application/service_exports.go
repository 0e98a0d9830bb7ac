package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

const exportPageSize = 200

type exportItem struct {
	EntryID   string    `json:"entry_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      int       `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestExport generates a full takeout of the caller's journal under the
// per-(user, format) lock. A concurrent duplicate request gets ErrLockBusy
// instead of a second generation; callers are expected to retry later rather
// than piggyback on the holder's file.
func (s *Service) RequestExport(ctx context.Context, ident Identity, req ExportRequest) (ExportView, error) {
	format, err := domain.ValidateExportFormat(req.Format)
	if err != nil {
		return ExportView{}, err
	}

	lockKey := domain.ExportLockKey(ident.UserID, format)
	token, err := s.locks.Acquire(ctx, lockKey, s.cfg.ExportLockTTL)
	if err != nil {
		return ExportView{}, err
	}
	defer func() {
		// Release must not be skipped because the request context died.
		if err := s.locks.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			slog.Default().WarnContext(ctx, "export lock release failed",
				"service", "DataCore-Service",
				"module", "application",
				"layer", "application",
				"operation", "release_export_lock",
				"outcome", "warning",
				"error", err,
			)
		}
	}()

	now := s.nowFn()
	record := domain.ExportRecord{
		ExportID:    uuid.New(),
		UserID:      ident.UserID,
		Format:      format,
		Status:      domain.ExportStatusPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(s.cfg.ExportTTL),
	}
	requestedEvent, err := s.namedEvent(domain.EventExportRequested, record, domain.ChangeCreated, now)
	if err != nil {
		return ExportView{}, fmt.Errorf("assemble change event: %w", err)
	}
	created, err := s.exports.CreateWithEvents(ctx, ports.ExportCreateParams{
		ExportID:    record.ExportID,
		UserID:      record.UserID,
		Format:      record.Format,
		RequestedAt: record.RequestedAt,
		ExpiresAt:   record.ExpiresAt,
	}, []ports.OutboxEvent{requestedEvent})
	if err != nil {
		return ExportView{}, err
	}

	filePath, count, genErr := s.generateExportFile(ctx, ident, created, lockKey, token)
	if genErr != nil {
		s.failExport(ctx, created, genErr)
		return ExportView{}, genErr
	}

	completedAt := s.nowFn()
	completed := created
	completed.Status = domain.ExportStatusCompleted
	completed.FilePath = filePath
	completed.EntryCount = count
	completed.CompletedAt = &completedAt
	completedEvent, err := s.namedEvent(domain.EventExportCompleted, completed, domain.ChangeUpdated, completedAt)
	if err != nil {
		return ExportView{}, fmt.Errorf("assemble change event: %w", err)
	}
	if err := s.exports.Complete(ctx, created.ExportID, filePath, count, completedAt, []ports.OutboxEvent{completedEvent}); err != nil {
		return ExportView{}, err
	}
	return toExportView(completed), nil
}

func (s *Service) GetExport(ctx context.Context, ident Identity, exportID uuid.UUID) (ExportView, error) {
	rec, err := s.exports.GetByID(ctx, exportID, ident.UserID)
	if err != nil {
		return ExportView{}, err
	}
	return toExportView(rec), nil
}

func (s *Service) ListExports(ctx context.Context, ident Identity) ([]ExportView, error) {
	rows, err := s.exports.ListByUser(ctx, ident.UserID, s.cfg.ListLimit)
	if err != nil {
		return nil, err
	}
	views := make([]ExportView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toExportView(row))
	}
	return views, nil
}

// generateExportFile decrypts the user's entries and renders them to disk.
// The lock lease is extended after the decrypt pass; losing the lease means
// another holder may already be generating, so the job aborts.
func (s *Service) generateExportFile(ctx context.Context, ident Identity, rec domain.ExportRecord, lockKey, token string) (string, int, error) {
	items, err := s.collectExportItems(ctx, ident)
	if err != nil {
		return "", 0, err
	}

	if err := s.locks.Extend(ctx, lockKey, token, s.cfg.ExportLockTTL); err != nil {
		return "", 0, fmt.Errorf("export lock lease lost: %w", err)
	}

	var data []byte
	switch rec.Format {
	case domain.ExportFormatCSV:
		data, err = renderCSV(items)
	default:
		data, err = renderJSON(ident.UserID, s.nowFn(), items)
	}
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(s.cfg.ExportDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create export dir: %w", err)
	}
	filePath := filepath.Join(s.cfg.ExportDir, rec.ExportID.String()+"."+rec.Format)
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", 0, fmt.Errorf("write export file: %w", err)
	}
	return filePath, len(items), nil
}

func (s *Service) collectExportItems(ctx context.Context, ident Identity) ([]exportItem, error) {
	var records []ports.JournalRecord
	for offset := 0; ; offset += exportPageSize {
		page, err := s.journal.ListByUser(ctx, ident.UserID, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	if len(records) == 0 {
		return []exportItem{}, nil
	}

	enc, err := s.existingEncryptionContext(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]exportItem, 0, len(records))
	for _, rec := range records {
		title, err := enc.DecryptField(rec.TitleEnc)
		if err != nil {
			return nil, err
		}
		body, err := enc.DecryptField(rec.BodyEnc)
		if err != nil {
			return nil, err
		}
		items = append(items, exportItem{
			EntryID:   rec.EntryID.String(),
			Title:     string(title),
			Body:      string(body),
			Mood:      rec.Mood,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return items, nil
}

func (s *Service) failExport(ctx context.Context, rec domain.ExportRecord, cause error) {
	failedAt := s.nowFn()
	failed := rec
	failed.Status = domain.ExportStatusFailed
	event, err := s.namedEvent(domain.EventExportFailed, failed, domain.ChangeUpdated, failedAt)
	if err != nil {
		return
	}
	if err := s.exports.MarkFailed(ctx, rec.ExportID, failedAt, []ports.OutboxEvent{event}); err != nil {
		slog.Default().WarnContext(ctx, "export failure not recorded",
			"service", "DataCore-Service",
			"module", "application",
			"layer", "application",
			"operation", "mark_export_failed",
			"outcome", "warning",
			"export_id", rec.ExportID,
			"error", err,
		)
	}
	slog.Default().ErrorContext(ctx, "export generation failed",
		"service", "DataCore-Service",
		"module", "application",
		"layer", "application",
		"operation", "request_export",
		"outcome", "failure",
		"export_id", rec.ExportID,
		"format", rec.Format,
		"error", cause,
	)
}

func renderJSON(userID uuid.UUID, generatedAt time.Time, items []exportItem) ([]byte, error) {
	return json.MarshalIndent(map[string]any{
		"user_id":      userID.String(),
		"generated_at": generatedAt,
		"entry_count":  len(items),
		"entries":      items,
	}, "", "  ")
}

func renderCSV(items []exportItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"entry_id", "title", "body", "mood", "created_at", "updated_at"}); err != nil {
		return nil, err
	}
	for _, item := range items {
		row := []string{
			item.EntryID,
			item.Title,
			item.Body,
			strconv.Itoa(item.Mood),
			item.CreatedAt.Format(time.RFC3339),
			item.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
