// Package services implements the transfer gate: the admission and
// orchestration logic invoked on every upload, download and delete request.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/logging"
	"github.com/dsmirnov/filedrop/internal/server/blob"
	"github.com/dsmirnov/filedrop/internal/server/keys"
	"github.com/dsmirnov/filedrop/internal/server/models"
	"github.com/dsmirnov/filedrop/internal/server/quota"
	"github.com/dsmirnov/filedrop/internal/server/repositories/repomanager"
)

// maxKeyAttempts bounds key-pair regeneration on registry collisions.
// With 256-bit keys a second consecutive collision indicates a broken
// random source rather than bad luck.
const maxKeyAttempts = 3

// TransferService is the core invoked on every transfer request. It owns
// neither leads nor stored files; it borrows access to exactly one lead and
// at most one file per request, serialized per IP by the keyed mutex.
type TransferService struct {
	repos           repomanager.RepositoryManager
	blobs           blob.Storage
	clock           quota.Clock
	logger          logging.Logger
	uploadLimitMB   int64
	downloadLimitMB int64
	locks           *keyMutex

	// generateKeyPair is swapped out by tests to simulate collisions.
	generateKeyPair func() keys.KeyPair
}

// UploadResult carries the capability pair issued for a stored file.
type UploadResult struct {
	PublicKey  string
	PrivateKey string
}

// NewTransferService wires the transfer gate with its collaborators and
// static limits.
func NewTransferService(
	repos repomanager.RepositoryManager,
	blobs blob.Storage,
	clock quota.Clock,
	logger logging.Logger,
	uploadLimitMB, downloadLimitMB int64,
) *TransferService {
	return &TransferService{
		repos:           repos,
		blobs:           blobs,
		clock:           clock,
		logger:          logger.With("module", "transfer"),
		uploadLimitMB:   uploadLimitMB,
		downloadLimitMB: downloadLimitMB,
		locks:           newKeyMutex(),
		generateKeyPair: keys.GenerateKeyPair,
	}
}

// Upload admits the stream against the client's remaining daily upload
// budget, stores the bytes, registers the file and commits the ledger.
//
// The ledger is committed only after the registry insert succeeds: if
// registration fails after the bytes were written the quota is not charged
// and the blob is left orphaned (accepted collateral; reclamation is out of
// scope).
func (s *TransferService) Upload(ctx context.Context, ip, fileName string, r io.Reader) (*UploadResult, error) {
	unlock := s.locks.Lock(ip)
	defer unlock()

	today := s.clock.Today()

	lead, err := s.repos.Leads().GetOrCreate(ctx, ip, today)
	if err != nil {
		return nil, err
	}

	consumed, _ := quota.ResetIfStale(lead.Balance(models.TransferUpload), lead.LastDate(models.TransferUpload), today)

	budget := s.uploadLimitMB*common.BytesPerMB - consumed
	if budget <= 0 {
		return nil, common.ErrSizeExceeded
	}

	storageKey, size, err := s.blobs.Save(ctx, r, budget)
	if err != nil {
		return nil, err
	}

	file, err := s.registerFile(ctx, fileName, storageKey, size)
	if err != nil {
		return nil, err
	}

	lead.SetBalance(models.TransferUpload, quota.BytesToMB(consumed+size), today)
	if err := s.repos.Leads().Save(ctx, lead); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "upload accepted", "ip", ip, "size_bytes", size)

	return &UploadResult{PublicKey: file.PublicKey, PrivateKey: file.PrivateKey}, nil
}

// registerFile persists the metadata record, regenerating the key pair on a
// registry collision instead of ever overwriting an existing row.
func (s *TransferService) registerFile(ctx context.Context, fileName, storageKey string, size int64) (*models.StoredFile, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		pair := s.generateKeyPair()

		file := &models.StoredFile{
			ID:         uuid.NewString(),
			Name:       fileName,
			StorageKey: storageKey,
			SizeMB:     quota.BytesToMB(size),
			PublicKey:  pair.Public,
			PrivateKey: pair.Private,
		}

		err := s.repos.Files().Create(ctx, file)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, common.ErrDuplicateKey) {
			return nil, err
		}

		s.logger.Warn(ctx, "file key collision, regenerating pair", "attempt", attempt+1)
	}

	return nil, fmt.Errorf("%w: key collisions persisted after %d attempts", common.ErrStorage, maxKeyAttempts)
}

// Download resolves the public key and admits the transfer against the
// client's remaining daily download budget. The ledger is charged before
// the bytes are streamed; a client that disconnects mid-download stays
// charged. That trade-off is deliberate, not a bug.
func (s *TransferService) Download(ctx context.Context, ip, publicKey string) (*models.StoredFile, error) {
	file, err := s.repos.Files().FindByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ip)
	defer unlock()

	today := s.clock.Today()

	lead, err := s.repos.Leads().GetOrCreate(ctx, ip, today)
	if err != nil {
		return nil, err
	}

	consumed, _ := quota.ResetIfStale(lead.Balance(models.TransferDownload), lead.LastDate(models.TransferDownload), today)

	sizeBytes := quota.MBToBytes(file.SizeMB)
	if consumed+sizeBytes > s.downloadLimitMB*common.BytesPerMB {
		return nil, common.ErrQuotaExceeded
	}

	lead.SetBalance(models.TransferDownload, quota.BytesToMB(consumed+sizeBytes), today)
	if err := s.repos.Leads().Save(ctx, lead); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "download accepted", "ip", ip, "size_bytes", sizeBytes)

	return file, nil
}

// OpenBlob returns a reader over a stored file's bytes for streaming to
// the client.
func (s *TransferService) OpenBlob(ctx context.Context, file *models.StoredFile) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, file.StorageKey)
}

// Delete resolves the private key and removes the file. It reports whether
// the bytes were removed now (true) or the file was already gone (false).
//
// An unknown key and an already-deleted file produce the same "already
// deleted" outcome on purpose: distinguishing them would leak whether a
// given key ever existed.
func (s *TransferService) Delete(ctx context.Context, privateKey string) (bool, error) {
	file, err := s.repos.Files().FindByPrivateKey(ctx, privateKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}

	removed, err := s.blobs.Delete(ctx, file.StorageKey)
	if err != nil {
		return false, err
	}

	if err := s.repos.Files().MarkDeleted(ctx, file.ID); err != nil {
		return false, err
	}

	s.logger.Info(ctx, "file deleted", "file_id", file.ID, "bytes_removed", removed)

	return removed, nil
}
