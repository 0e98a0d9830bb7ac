package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	cacheadapter "github.com/stillwaterhq/datacore/internal/adapters/cache"
	httpadapter "github.com/stillwaterhq/datacore/internal/adapters/http"
	"github.com/stillwaterhq/datacore/internal/adapters/security"
	"github.com/stillwaterhq/datacore/internal/application"
	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

func TestHealthAndDocsArePublic(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		status, body := env.get(t, path, "")
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, status)
		}
		var msg struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &msg); err != nil || msg.Status != "success" {
			t.Fatalf("%s: unexpected body %s", path, body)
		}
	}

	resp, err := http.Get(env.server.URL + "/swagger/")
	if err != nil {
		t.Fatalf("swagger request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("swagger: expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("swagger: unexpected content type %s", ct)
	}

	status, body := env.get(t, "/swagger/openapi.yaml", "")
	if status != http.StatusOK || !bytes.Contains(body, []byte("openapi:")) {
		t.Fatalf("openapi spec not served, status %d", status)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "req-abc-123" {
		t.Fatalf("expected request id passthrough, got %q", got)
	}

	resp, err = http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestAuthenticationContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()

	// No Authorization header.
	status, body := env.get(t, "/datacore/v1/journal", "")
	assertErrorBody(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")

	// Malformed scheme.
	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/datacore/v1/journal", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assertErrorBody(t, resp.StatusCode, raw, http.StatusUnauthorized, "UNAUTHORIZED")

	// Garbage token.
	status, body = env.get(t, "/datacore/v1/journal", "not-a-jwt")
	assertErrorBody(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")

	// Token signed with a different secret.
	foreign := mintWithSecret(t, []byte("other-secret"), uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))
	status, body = env.get(t, "/datacore/v1/journal", foreign)
	assertErrorBody(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestRevokedAndExpiredTokensAreIndistinguishable(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	userID := uuid.New()

	expired := env.mint(t, userID, uuid.NewString(), time.Now().Add(-time.Minute))
	expStatus, expBody := env.get(t, "/datacore/v1/journal", expired)
	assertErrorBody(t, expStatus, expBody, http.StatusUnauthorized, "TOKEN_EXPIRED")

	live := env.mint(t, userID, uuid.NewString(), time.Now().Add(time.Hour))
	status, body := env.post(t, "/datacore/v1/tokens/revoke", live, "", nil)
	if status != http.StatusOK {
		t.Fatalf("revoke failed: %d %s", status, body)
	}
	revStatus, revBody := env.get(t, "/datacore/v1/journal", live)
	assertErrorBody(t, revStatus, revBody, http.StatusUnauthorized, "TOKEN_EXPIRED")

	// A caller must not be able to tell the two conditions apart.
	if expStatus != revStatus || !bytes.Equal(expBody, revBody) {
		t.Fatalf("revoked and expired responses differ:\n%s\n%s", expBody, revBody)
	}
}

func TestJournalEndpointContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	token := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))

	status, body := env.post(t, "/datacore/v1/journal", token, "", map[string]any{
		"title": "First entry",
		"body":  "Contents here.",
		"mood":  6,
	})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", status, body)
	}
	var created struct {
		Status string `json:"status"`
		Data   struct {
			EntryID string `json:"entry_id"`
			Title   string `json:"title"`
			Body    string `json:"body"`
			Mood    int    `json:"mood"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != "success" || created.Data.Title != "First entry" || created.Data.Mood != 6 {
		t.Fatalf("unexpected create envelope: %s", body)
	}
	entryID := created.Data.EntryID
	if _, err := uuid.Parse(entryID); err != nil {
		t.Fatalf("entry_id is not a uuid: %q", entryID)
	}

	status, body = env.get(t, "/datacore/v1/journal/"+entryID, token)
	if status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d %s", status, body)
	}

	status, body = env.get(t, "/datacore/v1/journal?limit=5", token)
	if status != http.StatusOK {
		t.Fatalf("list: expected 200, got %d %s", status, body)
	}
	var listed struct {
		Data struct {
			Entries []struct {
				EntryID string `json:"entry_id"`
				Mood    int    `json:"mood"`
			} `json:"entries"`
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed.Data.Entries) != 1 || listed.Data.Entries[0].EntryID != entryID || listed.Data.Limit != 5 {
		t.Fatalf("unexpected index: %s", body)
	}
	if bytes.Contains(body, []byte("Contents here")) {
		t.Fatalf("index leaked entry content: %s", body)
	}

	status, body = env.put(t, "/datacore/v1/journal/"+entryID, token, map[string]any{
		"title": "First entry, edited",
		"body":  "New contents.",
		"mood":  4,
	})
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", status, body)
	}

	status, body = env.delete(t, "/datacore/v1/journal/"+entryID, token)
	if status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d %s", status, body)
	}
	status, body = env.get(t, "/datacore/v1/journal/"+entryID, token)
	assertErrorBody(t, status, body, http.StatusNotFound, "NOT_FOUND")
}

func TestJournalValidationContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	token := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))

	// Mood out of range.
	status, body := env.post(t, "/datacore/v1/journal", token, "", map[string]any{
		"title": "t", "body": "b", "mood": 11,
	})
	assertErrorBody(t, status, body, http.StatusBadRequest, "VALIDATION_ERROR")

	// Unknown fields are rejected, not ignored.
	status, body = env.post(t, "/datacore/v1/journal", token, "", map[string]any{
		"title": "t", "body": "b", "mood": 5, "extra": true,
	})
	assertErrorBody(t, status, body, http.StatusBadRequest, "VALIDATION_ERROR")

	// Non-uuid path parameter.
	status, body = env.get(t, "/datacore/v1/journal/not-a-uuid", token)
	assertErrorBody(t, status, body, http.StatusBadRequest, "VALIDATION_ERROR")

	// Unknown entry.
	status, body = env.get(t, "/datacore/v1/journal/"+uuid.NewString(), token)
	assertErrorBody(t, status, body, http.StatusNotFound, "NOT_FOUND")
}

func TestJournalOwnershipContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()

	ownerToken := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))
	strangerToken := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))

	status, body := env.post(t, "/datacore/v1/journal", ownerToken, "", map[string]any{
		"title": "mine", "body": "b", "mood": 5,
	})
	if status != http.StatusCreated {
		t.Fatalf("create failed: %d %s", status, body)
	}
	var created struct {
		Data struct {
			EntryID string `json:"entry_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Another tenant sees 404, not 403: existence is not disclosed.
	status, body = env.get(t, "/datacore/v1/journal/"+created.Data.EntryID, strangerToken)
	assertErrorBody(t, status, body, http.StatusNotFound, "NOT_FOUND")
}

func TestIdempotencyContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	token := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))
	payload := map[string]any{"title": "once", "body": "b", "mood": 5}

	status, body := env.post(t, "/datacore/v1/journal", token, "key-1", payload)
	if status != http.StatusCreated {
		t.Fatalf("first create failed: %d %s", status, body)
	}
	var first struct {
		Data struct {
			EntryID string `json:"entry_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	status, body = env.post(t, "/datacore/v1/journal", token, "key-1", payload)
	if status != http.StatusCreated {
		t.Fatalf("replay failed: %d %s", status, body)
	}
	var replay struct {
		Data struct {
			EntryID string `json:"entry_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &replay); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if replay.Data.EntryID != first.Data.EntryID {
		t.Fatalf("replay created a different entry: %s vs %s", replay.Data.EntryID, first.Data.EntryID)
	}

	status, body = env.post(t, "/datacore/v1/journal", token, "key-1", map[string]any{
		"title": "different", "body": "b", "mood": 5,
	})
	assertErrorBody(t, status, body, http.StatusConflict, "IDEMPOTENCY_CONFLICT")
}

func TestExportContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	userID := uuid.New()
	token := env.mint(t, userID, uuid.NewString(), time.Now().Add(time.Hour))

	if status, body := env.post(t, "/datacore/v1/journal", token, "", map[string]any{
		"title": "entry", "body": "b", "mood": 5,
	}); status != http.StatusCreated {
		t.Fatalf("seed failed: %d %s", status, body)
	}

	status, body := env.post(t, "/datacore/v1/exports", token, "", map[string]any{"format": "json"})
	if status != http.StatusCreated {
		t.Fatalf("export: expected 201, got %d %s", status, body)
	}
	var exported struct {
		Data struct {
			ExportID   string `json:"export_id"`
			Format     string `json:"format"`
			Status     string `json:"status"`
			EntryCount int    `json:"entry_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &exported); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if exported.Data.Status != "completed" || exported.Data.EntryCount != 1 || exported.Data.Format != "json" {
		t.Fatalf("unexpected export envelope: %s", body)
	}

	status, body = env.get(t, "/datacore/v1/exports/"+exported.Data.ExportID, token)
	if status != http.StatusOK {
		t.Fatalf("get export: expected 200, got %d %s", status, body)
	}
	status, body = env.get(t, "/datacore/v1/exports", token)
	if status != http.StatusOK {
		t.Fatalf("list exports: expected 200, got %d %s", status, body)
	}

	// Unsupported format.
	status, body = env.post(t, "/datacore/v1/exports", token, "", map[string]any{"format": "xml"})
	assertErrorBody(t, status, body, http.StatusBadRequest, "VALIDATION_ERROR")

	// A held lock rejects the duplicate instead of queueing it.
	lockKey := domain.ExportLockKey(userID, domain.ExportFormatJSON)
	if _, err := env.locks.Acquire(context.Background(), lockKey, time.Minute); err != nil {
		t.Fatalf("pre-acquire failed: %v", err)
	}
	status, body = env.post(t, "/datacore/v1/exports", token, "", map[string]any{"format": "json"})
	assertErrorBody(t, status, body, http.StatusConflict, "EXPORT_IN_PROGRESS")
}

func TestPurgeContract(t *testing.T) {
	t.Parallel()

	env := newHTTPEnv(t)
	defer env.server.Close()
	token := env.mint(t, uuid.New(), uuid.NewString(), time.Now().Add(time.Hour))

	status, body := env.post(t, "/datacore/v1/journal", token, "", map[string]any{
		"title": "to purge", "body": "b", "mood": 5,
	})
	if status != http.StatusCreated {
		t.Fatalf("seed failed: %d %s", status, body)
	}
	var created struct {
		Data struct {
			EntryID string `json:"entry_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	status, body = env.post(t, "/datacore/v1/privacy/purge", token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("purge: expected 200, got %d %s", status, body)
	}
	var purged struct {
		Data struct {
			KeyDeleted bool `json:"key_deleted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &purged); err != nil {
		t.Fatalf("decode purge: %v", err)
	}
	if !purged.Data.KeyDeleted {
		t.Fatalf("expected key deletion on first purge: %s", body)
	}

	// Reads of erased content return 410, not 404: the row exists, its
	// content is gone for good.
	status, body = env.get(t, "/datacore/v1/journal/"+created.Data.EntryID, token)
	assertErrorBody(t, status, body, http.StatusGone, "CONTENT_UNAVAILABLE")

	// The index survives.
	status, _ = env.get(t, "/datacore/v1/journal", token)
	if status != http.StatusOK {
		t.Fatalf("list after purge: expected 200, got %d", status)
	}
}

// --- environment ---

const contractTokenSecret = "contract-test-token-secret"

type httpEnv struct {
	server *httptest.Server
	locks  *memLock
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	vault, err := security.NewKeyVault(bytes.Repeat([]byte{0x24}, 32))
	if err != nil {
		t.Fatalf("init vault: %v", err)
	}
	verifier, err := security.NewTokenVerifier([]byte(contractTokenSecret))
	if err != nil {
		t.Fatalf("init verifier: %v", err)
	}

	locks := &memLock{held: map[string]string{}}
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SourceService:  "DataCore-Service",
			ExportDir:      t.TempDir(),
			ExportLockTTL:  30 * time.Second,
			ExportTTL:      7 * 24 * time.Hour,
			ListLimit:      20,
			CacheTTL:       time.Minute,
			IdempotencyTTL: 24 * time.Hour,
		},
		Journal:       &memJournal{rows: map[uuid.UUID]ports.JournalRecord{}},
		UserKeys:      &memUserKeys{keys: map[uuid.UUID]domain.UserEncryptionKey{}},
		Revocations:   &memRevocations{entries: map[string]domain.RevocationEntry{}},
		Exports:       &memExports{rows: map[uuid.UUID]domain.ExportRecord{}},
		Idempotency:   &memIdempotency{records: map[string]ports.IdempotencyRecord{}},
		Locks:         locks,
		Filter:        &memFilter{members: map[string]bool{}},
		Invalidations: &memBus{},
		Local:         cacheadapter.NewMemoryCache(),
		Vault:         vault,
		Cipher:        security.NewEnvelopeCipher(),
		Verifier:      verifier,
	})

	router := httpadapter.NewRouter(httpadapter.NewHandler(svc))
	return &httpEnv{server: httptest.NewServer(router), locks: locks}
}

func (e *httpEnv) mint(t *testing.T, userID uuid.UUID, jti string, expiresAt time.Time) string {
	t.Helper()
	return mintWithSecret(t, []byte(contractTokenSecret), userID, jti, expiresAt)
}

func mintWithSecret(t *testing.T, secret []byte, userID uuid.UUID, jti string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"jti":  jti,
		"role": "member",
		"iat":  time.Now().Add(-time.Minute).Unix(),
		"exp":  expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

func (e *httpEnv) do(t *testing.T, method, path, token, idempotencyKey string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else if method == http.MethodPost || method == http.MethodPut {
		body = strings.NewReader("{}")
	}

	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, raw
}

func (e *httpEnv) get(t *testing.T, path, token string) (int, []byte) {
	return e.do(t, http.MethodGet, path, token, "", nil)
}

func (e *httpEnv) post(t *testing.T, path, token, idempotencyKey string, payload any) (int, []byte) {
	return e.do(t, http.MethodPost, path, token, idempotencyKey, payload)
}

func (e *httpEnv) put(t *testing.T, path, token string, payload any) (int, []byte) {
	return e.do(t, http.MethodPut, path, token, "", payload)
}

func (e *httpEnv) delete(t *testing.T, path, token string) (int, []byte) {
	return e.do(t, http.MethodDelete, path, token, "", nil)
}

func assertErrorBody(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, status, body)
	}
	var envelope struct {
		Status string `json:"status"`
		Error  struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	if envelope.Status != "error" || envelope.Error.Code != wantCode || envelope.Error.Message == "" {
		t.Fatalf("unexpected error envelope: %s", body)
	}
}

// --- in-memory ports ---

type memJournal struct {
	mu   sync.Mutex
	rows map[uuid.UUID]ports.JournalRecord
}

func (m *memJournal) CreateWithEvents(_ context.Context, params ports.JournalWriteParams, _ []ports.OutboxEvent) (ports.JournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := ports.JournalRecord{
		EntryID:   params.EntryID,
		UserID:    params.UserID,
		TitleEnc:  params.TitleEnc,
		BodyEnc:   params.BodyEnc,
		Mood:      params.Mood,
		CreatedAt: params.At,
		UpdatedAt: params.At,
	}
	m.rows[params.EntryID] = rec
	return rec, nil
}

func (m *memJournal) UpdateWithEvents(_ context.Context, params ports.JournalWriteParams, _ []ports.OutboxEvent) (ports.JournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[params.EntryID]
	if !ok || rec.UserID != params.UserID {
		return ports.JournalRecord{}, domain.ErrNotFound
	}
	rec.TitleEnc = params.TitleEnc
	rec.BodyEnc = params.BodyEnc
	rec.Mood = params.Mood
	rec.UpdatedAt = params.At
	m.rows[params.EntryID] = rec
	return rec, nil
}

func (m *memJournal) DeleteWithEvents(_ context.Context, entryID, userID uuid.UUID, _ []ports.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[entryID]
	if !ok || rec.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.rows, entryID)
	return nil
}

func (m *memJournal) GetByID(_ context.Context, entryID, userID uuid.UUID) (ports.JournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[entryID]
	if !ok || rec.UserID != userID {
		return ports.JournalRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memJournal) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]ports.JournalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.JournalRecord
	for _, rec := range m.rows {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memUserKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]domain.UserEncryptionKey
}

func (m *memUserKeys) Get(_ context.Context, userID uuid.UUID) (domain.UserEncryptionKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[userID]
	if !ok {
		return domain.UserEncryptionKey{}, domain.ErrNotFound
	}
	return key, nil
}

func (m *memUserKeys) Insert(_ context.Context, key domain.UserEncryptionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key.UserID]; ok {
		return domain.ErrConflict
	}
	m.keys[key.UserID] = key
	return nil
}

func (m *memUserKeys) DeleteWithEvents(_ context.Context, userID uuid.UUID, _ []ports.OutboxEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.keys[userID]
	delete(m.keys, userID)
	return existed, nil
}

type memRevocations struct {
	mu      sync.Mutex
	entries map[string]domain.RevocationEntry
}

func (m *memRevocations) Insert(_ context.Context, entry domain.RevocationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.JTI] = entry
	return nil
}

func (m *memRevocations) Exists(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[jti]
	return ok, nil
}

func (m *memRevocations) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned int64
	for jti, entry := range m.entries {
		if entry.Expired(before) {
			delete(m.entries, jti)
			pruned++
		}
	}
	return pruned, nil
}

func (m *memRevocations) ListActive(_ context.Context, now time.Time, limit int) ([]domain.RevocationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RevocationEntry
	for _, entry := range m.entries {
		if !entry.Expired(now) {
			out = append(out, entry)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memExports struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.ExportRecord
}

func (m *memExports) CreateWithEvents(_ context.Context, params ports.ExportCreateParams, _ []ports.OutboxEvent) (domain.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := domain.ExportRecord{
		ExportID:    params.ExportID,
		UserID:      params.UserID,
		Format:      params.Format,
		Status:      domain.ExportStatusPending,
		RequestedAt: params.RequestedAt,
		ExpiresAt:   params.ExpiresAt,
	}
	m.rows[rec.ExportID] = rec
	return rec, nil
}

func (m *memExports) Complete(_ context.Context, exportID uuid.UUID, filePath string, entryCount int, completedAt time.Time, _ []ports.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[exportID]
	if !ok || rec.Status != domain.ExportStatusPending {
		return domain.ErrNotFound
	}
	rec.Status = domain.ExportStatusCompleted
	rec.FilePath = filePath
	rec.EntryCount = entryCount
	rec.CompletedAt = &completedAt
	m.rows[exportID] = rec
	return nil
}

func (m *memExports) MarkFailed(_ context.Context, exportID uuid.UUID, _ time.Time, _ []ports.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[exportID]
	if !ok || rec.Status != domain.ExportStatusPending {
		return domain.ErrNotFound
	}
	rec.Status = domain.ExportStatusFailed
	m.rows[exportID] = rec
	return nil
}

func (m *memExports) GetByID(_ context.Context, exportID, userID uuid.UUID) (domain.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[exportID]
	if !ok || rec.UserID != userID {
		return domain.ExportRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memExports) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ExportRecord
	for _, rec := range m.rows {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (m *memIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (m *memIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return domain.ErrConflict
	}
	m.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (m *memIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	rec.UpdatedAt = at
	m.records[key] = rec
	return nil
}

type memLock struct {
	mu   sync.Mutex
	held map[string]string
}

func (m *memLock) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockBusy
	}
	token := uuid.NewString()
	m.held[key] = token
	return token, nil
}

func (m *memLock) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *memLock) Extend(_ context.Context, key, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] != token {
		return domain.ErrLockBusy
	}
	return nil
}

type memFilter struct {
	mu      sync.Mutex
	members map[string]bool
}

func (m *memFilter) Add(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[jti] = true
	return nil
}

func (m *memFilter) MightContain(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[jti], nil
}

type memBus struct{}

func (memBus) Broadcast(context.Context, ports.Invalidation) error { return nil }
