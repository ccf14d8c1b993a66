package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/logging"
	"github.com/dsmirnov/filedrop/internal/server/blob"
	"github.com/dsmirnov/filedrop/internal/server/keys"
	"github.com/dsmirnov/filedrop/internal/server/models"
	"github.com/dsmirnov/filedrop/internal/server/repositories/files"
	"github.com/dsmirnov/filedrop/internal/server/repositories/repomanager"
)

// --- helpers ---

type fixedClock struct {
	mu  sync.Mutex
	day time.Time
}

func (c *fixedClock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func (c *fixedClock) Advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = c.day.AddDate(0, 0, days)
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newService(t *testing.T, uploadLimitMB, downloadLimitMB int64) (*TransferService, *repomanager.InMemoryRepositoryManager, *fixedClock) {
	t.Helper()

	rm := repomanager.NewInMemoryRepositoryManager()
	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	clock := &fixedClock{day: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewTransferService(rm, store, clock, discardLogger(), uploadLimitMB, downloadLimitMB)

	return svc, rm, clock
}

func payloadMB(mb int) string {
	return strings.Repeat("x", mb*common.BytesPerMB)
}

func mustUpload(t *testing.T, svc *TransferService, ip string, size int) *UploadResult {
	t.Helper()
	res, err := svc.Upload(context.Background(), ip, "data.bin", strings.NewReader(payloadMB(size)))
	require.NoError(t, err)
	return res
}

// --- upload ---

func TestUpload_IssuesIndependentKeys(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 1)
	assert.NotEmpty(t, res.PublicKey)
	assert.NotEmpty(t, res.PrivateKey)
	assert.NotEqual(t, res.PublicKey, res.PrivateKey)

	lead, err := rm.Leads().GetOrCreate(ctx, "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 1.0, lead.UploadBalance)
	assert.True(t, lead.LastUploadDate.Equal(clock.Today()))
}

func TestUpload_AccumulatesAdditivelySameDay(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)

	mustUpload(t, svc, "10.0.0.1", 2)
	mustUpload(t, svc, "10.0.0.1", 3)

	lead, err := rm.Leads().GetOrCreate(context.Background(), "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 5.0, lead.UploadBalance)
}

func TestUpload_ExactlyFillsCap(t *testing.T) {
	svc, _, _ := newService(t, 10, 10)

	mustUpload(t, svc, "10.0.0.1", 9)

	// 1MB exactly fills the remaining budget.
	res, err := svc.Upload(context.Background(), "10.0.0.1", "fit.bin",
		strings.NewReader(payloadMB(1)))
	require.NoError(t, err)
	assert.NotEmpty(t, res.PublicKey)
}

func TestUpload_OneBytePastCapRejected(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)

	mustUpload(t, svc, "10.0.0.1", 9)

	_, err := svc.Upload(context.Background(), "10.0.0.1", "big.bin",
		strings.NewReader(payloadMB(1)+"y"))
	assert.True(t, errors.Is(err, common.ErrSizeExceeded))

	// The rejected transfer must not be charged.
	lead, err := rm.Leads().GetOrCreate(context.Background(), "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 9.0, lead.UploadBalance)
}

func TestUpload_ZeroBudgetFailsUntilNextDay(t *testing.T) {
	svc, _, clock := newService(t, 10, 10)
	ctx := context.Background()

	mustUpload(t, svc, "10.0.0.1", 10)

	_, err := svc.Upload(ctx, "10.0.0.1", "late.bin", strings.NewReader("x"))
	assert.True(t, errors.Is(err, common.ErrSizeExceeded))

	clock.Advance(1)

	res, err := svc.Upload(ctx, "10.0.0.1", "fresh.bin", strings.NewReader(payloadMB(1)))
	require.NoError(t, err)
	assert.NotEmpty(t, res.PublicKey)
}

func TestUpload_DayBoundaryResetsBalance(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)

	mustUpload(t, svc, "10.0.0.1", 7)
	clock.Advance(1)
	mustUpload(t, svc, "10.0.0.1", 2)

	lead, err := rm.Leads().GetOrCreate(context.Background(), "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 2.0, lead.UploadBalance, "previous day's balance must not carry over")
	assert.True(t, lead.LastUploadDate.Equal(clock.Today()))
}

func TestUpload_KeyCollisionRegeneratesExactlyOnce(t *testing.T) {
	svc, rm, _ := newService(t, 10, 10)
	ctx := context.Background()

	taken := keys.GenerateKeyPair()
	require.NoError(t, rm.Files().Create(ctx, &models.StoredFile{
		ID:         "occupied",
		Name:       "other.bin",
		StorageKey: "other-key",
		SizeMB:     1,
		PublicKey:  taken.Public,
		PrivateKey: taken.Private,
	}))

	calls := 0
	svc.generateKeyPair = func() keys.KeyPair {
		calls++
		if calls == 1 {
			return taken // collides with the existing row
		}
		return keys.GenerateKeyPair()
	}

	res, err := svc.Upload(ctx, "10.0.0.1", "new.bin", strings.NewReader(payloadMB(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "one collision must trigger exactly one regeneration")
	assert.NotEqual(t, taken.Public, res.PublicKey)

	// The occupied row must be untouched.
	existing, err := rm.Files().FindByPublicKey(ctx, taken.Public)
	require.NoError(t, err)
	assert.Equal(t, "occupied", existing.ID)
}

// failingFilesRepo makes Create fail while delegating everything else.
type failingFilesRepo struct {
	files.Repository
	createErr error
}

func (f *failingFilesRepo) Create(ctx context.Context, file *models.StoredFile) error {
	return f.createErr
}

type overrideManager struct {
	repomanager.RepositoryManager
	filesRepo files.Repository
}

func (m *overrideManager) Files() files.Repository {
	return m.filesRepo
}

func TestUpload_RegistryFailureDoesNotChargeLedger(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)

	svc.repos = &overrideManager{
		RepositoryManager: rm,
		filesRepo:         &failingFilesRepo{Repository: rm.Files(), createErr: common.ErrStorage},
	}

	_, err := svc.Upload(context.Background(), "10.0.0.1", "doomed.bin", strings.NewReader(payloadMB(1)))
	assert.True(t, errors.Is(err, common.ErrStorage))

	lead, err := rm.Leads().GetOrCreate(context.Background(), "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 0.0, lead.UploadBalance, "quota must not be charged when registration fails")
	assert.Zero(t, rm.LeadStore().SaveN)
}

// --- download ---

func TestDownload_UnknownKey(t *testing.T) {
	svc, _, _ := newService(t, 10, 5)

	_, err := svc.Download(context.Background(), "10.0.0.2", "no-such-key")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestDownload_FullFileOncePerDay(t *testing.T) {
	svc, _, clock := newService(t, 10, 5)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 5)

	// First download of a 5MB file against a 5MB limit exactly fills it.
	file, err := svc.Download(ctx, "10.0.0.2", res.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, 5.0, file.SizeMB)

	// Any second download that day is rejected.
	_, err = svc.Download(ctx, "10.0.0.2", res.PublicKey)
	assert.True(t, errors.Is(err, common.ErrQuotaExceeded))

	// The next calendar day the budget is fresh.
	clock.Advance(1)
	_, err = svc.Download(ctx, "10.0.0.2", res.PublicKey)
	require.NoError(t, err)
}

func TestDownload_ChargeCommittedBeforeStreaming(t *testing.T) {
	svc, rm, clock := newService(t, 10, 5)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 2)

	file, err := svc.Download(ctx, "10.0.0.2", res.PublicKey)
	require.NoError(t, err)

	// The ledger reflects the charge before any byte is streamed.
	lead, err := rm.Leads().GetOrCreate(ctx, "10.0.0.2", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 2.0, lead.DownloadBalance)

	rc, err := svc.OpenBlob(ctx, file)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Len(t, data, 2*common.BytesPerMB)
}

func TestDownload_QuotaIndependentFromUploads(t *testing.T) {
	svc, _, _ := newService(t, 10, 5)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 3)

	// The uploader's own download budget is untouched by the upload.
	_, err := svc.Download(ctx, "10.0.0.1", res.PublicKey)
	require.NoError(t, err)
}

// --- delete ---

func TestDelete_Flow(t *testing.T) {
	svc, _, _ := newService(t, 10, 10)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 1)

	removed, err := svc.Delete(ctx, res.PrivateKey)
	require.NoError(t, err)
	assert.True(t, removed)

	// The public key no longer resolves.
	_, err = svc.Download(ctx, "10.0.0.2", res.PublicKey)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestDelete_AlreadyDeletedIsIdempotent(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 1)

	removed, err := svc.Delete(ctx, res.PrivateKey)
	require.NoError(t, err)
	assert.True(t, removed)

	// Second delete with the now-invalid key: "already deleted", no error,
	// no further state change.
	removed, err = svc.Delete(ctx, res.PrivateKey)
	require.NoError(t, err)
	assert.False(t, removed)

	lead, err := rm.Leads().GetOrCreate(ctx, "10.0.0.1", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 1.0, lead.UploadBalance, "delete must not touch the ledger")
}

func TestDelete_UnknownKeySameAsAlreadyDeleted(t *testing.T) {
	svc, _, _ := newService(t, 10, 10)

	removed, err := svc.Delete(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDelete_MetadataWithoutBytes(t *testing.T) {
	svc, rm, _ := newService(t, 10, 10)
	ctx := context.Background()

	res := mustUpload(t, svc, "10.0.0.1", 1)

	file, err := rm.Files().FindByPrivateKey(ctx, res.PrivateKey)
	require.NoError(t, err)

	// Bytes vanish behind the registry's back.
	gone, err := svc.blobs.Delete(ctx, file.StorageKey)
	require.NoError(t, err)
	require.True(t, gone)

	removed, err := svc.Delete(ctx, res.PrivateKey)
	require.NoError(t, err)
	assert.False(t, removed, "absent bytes report already deleted without error")

	// The tombstone is still set.
	_, err = rm.Files().FindByPrivateKey(ctx, res.PrivateKey)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

// --- concurrency ---

func TestUpload_ConcurrentClientsDoNotOvershootCap(t *testing.T) {
	svc, rm, clock := newService(t, 10, 10)

	const workers = 50

	var wg sync.WaitGroup
	results := make(chan error, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Upload(context.Background(), "10.9.9.9", "chunk.bin",
				strings.NewReader(payloadMB(1)))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, common.ErrSizeExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 10, accepted)
	assert.Equal(t, 40, rejected)

	lead, err := rm.Leads().GetOrCreate(context.Background(), "10.9.9.9", clock.Today())
	require.NoError(t, err)
	assert.Equal(t, 10.0, lead.UploadBalance, "no lost updates, no overcount")
}
