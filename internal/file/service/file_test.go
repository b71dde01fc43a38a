package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filevault/internal/file/biz"
	"github.com/lk2023060901/filevault/internal/file/types"
	apperrors "github.com/lk2023060901/filevault/internal/pkg/errors"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	mu         sync.Mutex
	byHash     map[string]*types.FileRecord
	duplicates int64
	bytesSaved int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byHash: make(map[string]*types.FileRecord)}
}

func (r *stubRepo) PutIfAbsent(ctx context.Context, record *types.FileRecord) (bool, *types.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byHash[record.ContentHash]; ok {
		clone := *existing
		return false, &clone, nil
	}
	clone := *record
	r.byHash[record.ContentHash] = &clone
	return true, nil, nil
}

func (r *stubRepo) GetByID(ctx context.Context, fileID string) (*types.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.byHash {
		if record.FileID == fileID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) GetByHash(ctx context.Context, contentHash string) (*types.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record, ok := r.byHash[contentHash]; ok {
		clone := *record
		return &clone, nil
	}
	return nil, nil
}

func (r *stubRepo) ScanPage(ctx context.Context, afterHash string, limit int) ([]*types.FileRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hashes := make([]string, 0, len(r.byHash))
	for hash := range r.byHash {
		if hash > afterHash {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)

	hasMore := len(hashes) > limit
	if hasMore {
		hashes = hashes[:limit]
	}

	records := make([]*types.FileRecord, 0, len(hashes))
	for _, hash := range hashes {
		clone := *r.byHash[hash]
		records = append(records, &clone)
	}
	return records, hasMore, nil
}

func (r *stubRepo) CountUnique(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byHash)), nil
}

func (r *stubRepo) IncrementCounters(ctx context.Context, duplicatesDelta, bytesDelta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates += duplicatesDelta
	r.bytesSaved += bytesDelta
	return nil
}

func (r *stubRepo) GetCounters(ctx context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duplicates, r.bytesSaved, nil
}

type stubBlob struct{}

func (stubBlob) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (stubBlob) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/bucket/%s?X-Amz-Expires=%d", key, int64(ttl.Seconds())), nil
}

func (stubBlob) ObjectURL(key string) string {
	return "https://blobs.test/bucket/" + key
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "console"})
	require.NoError(t, err)

	repo := newStubRepo()
	uc := biz.NewFileUseCase(repo, stubBlob{}, nil, nil, log)
	svc := NewFileService(uc, log)

	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))
	return router
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router *gin.Engine, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, &env
}

func uploadFile(t *testing.T, router *gin.Engine, body, name string) (*httptest.ResponseRecorder, *UploadResponse) {
	t.Helper()

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/files", body, map[string]string{
		"Content-Type": "text/plain",
		"X-Filename":   name,
	})

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return w, &resp
}

func TestUploadFileCreated(t *testing.T) {
	router := newTestRouter(t)

	w, resp := uploadFile(t, router, "hello", "a.txt")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, types.StatusCreated, resp.Status)
	assert.Equal(t, "a.txt", resp.Record.Name)
	assert.Equal(t, int64(5), resp.Record.SizeBytes)
	assert.Equal(t, "text/plain", resp.Record.ContentType)
	assert.Len(t, resp.Record.ContentHash, 64)
	assert.NotEmpty(t, resp.Record.FileID)
	assert.NotEmpty(t, resp.Record.AccessLocator)
}

func TestUploadFileDuplicateConflict(t *testing.T) {
	router := newTestRouter(t)

	_, first := uploadFile(t, router, "hello", "a.txt")

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/files", "hello", map[string]string{
		"Content-Type": "text/plain",
		"X-Filename":   "b.txt",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrConflict, env.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, types.StatusDuplicate, resp.Status)
	// The canonical record keeps the first upload's name and id
	assert.Equal(t, "a.txt", resp.Record.Name)
	assert.Equal(t, first.Record.FileID, resp.Record.FileID)
}

func TestUploadFileEmptyBody(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/files", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileInvalidPayload, env.Code)
}

func TestUploadFileBase64Body(t *testing.T) {
	router := newTestRouter(t)

	encoded := base64.StdEncoding.EncodeToString([]byte("hello"))
	w, env := doRequest(t, router, http.MethodPost, "/api/v1/files", encoded, map[string]string{
		"Content-Type":              "text/plain",
		"Content-Transfer-Encoding": "base64",
		"X-Filename":                "a.txt",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	// The decoded bytes are hashed, not the base64 text
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", resp.Record.ContentHash)
	assert.Equal(t, int64(5), resp.Record.SizeBytes)
}

func TestUploadFileBadBase64(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodPost, "/api/v1/files", "%%%not-base64%%%", map[string]string{
		"Content-Transfer-Encoding": "base64",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileInvalidPayload, env.Code)
}

func TestGetFileNotFound(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/files/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)
}

func TestGetFileReturnsRecord(t *testing.T) {
	router := newTestRouter(t)

	_, uploaded := uploadFile(t, router, "hello", "a.txt")

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/files/"+uploaded.Record.FileID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var record FileRecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, uploaded.Record.ContentHash, record.ContentHash)
	assert.Equal(t, "a.txt", record.Name)

	_, err := time.Parse(time.RFC3339, record.CreatedAt)
	assert.NoError(t, err)
}

func TestListFilesCursorWalk(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < 5; i++ {
		w, _ := uploadFile(t, router, fmt.Sprintf("payload-%d", i), fmt.Sprintf("f%d.txt", i))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	seen := make(map[string]bool)
	target := "/api/v1/files?limit=2"
	pages := 0
	for {
		w, env := doRequest(t, router, http.MethodGet, target, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		pages++

		var resp ListFilesResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))

		for _, file := range resp.Files {
			assert.False(t, seen[file.FileID])
			seen[file.FileID] = true
		}

		if resp.NextCursor == "" {
			assert.Empty(t, resp.NextPage)
			break
		}
		// NextPage is a ready-to-follow query fragment
		require.True(t, strings.HasPrefix(resp.NextPage, "?"))
		target = "/api/v1/files" + resp.NextPage
	}

	assert.Equal(t, 5, len(seen))
	assert.Equal(t, 3, pages)
}

func TestListFilesInvalidLimit(t *testing.T) {
	router := newTestRouter(t)

	w, _ := doRequest(t, router, http.MethodGet, "/api/v1/files?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFilesInvalidCursor(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/files?cursor=%21%21%21", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileInvalidCursor, env.Code)
}

func TestGetStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	uploadFile(t, router, "first", "1.txt")
	uploadFile(t, router, "second payload", "2.txt")
	uploadFile(t, router, "first", "again.txt")

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.TotalUniqueFiles)
	assert.Equal(t, int64(1), stats.DuplicatesAvoided)
	assert.Equal(t, int64(len("first")), stats.TotalBytesSaved)
}

func TestGetDownloadLinkEndpoint(t *testing.T) {
	router := newTestRouter(t)

	_, uploaded := uploadFile(t, router, "hello", "a.txt")

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/files/"+uploaded.Record.FileID+"/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DownloadLinkResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Contains(t, resp.DownloadURL, uploaded.Record.StorageKey)
	assert.Equal(t, "a.txt", resp.Name)
	assert.Equal(t, int64(5), resp.SizeBytes)
	assert.Equal(t, int64(3600), resp.ExpiresInSeconds)
}

func TestGetDownloadLinkNotFound(t *testing.T) {
	router := newTestRouter(t)

	w, env := doRequest(t, router, http.MethodGet, "/api/v1/files/missing/download", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)
}
