package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edstack/storacct/internal/account"
	"github.com/edstack/storacct/internal/ledger"
	"github.com/edstack/storacct/internal/objstore"
	"github.com/google/uuid"
)

const (
	mib = int64(1024 * 1024)
	gib = 1024 * mib
)

func newTestService(accounts *fakeAccounts, objects *fakeLedger, backend *fakeBackend) *Service {
	return NewService(accounts, objects, backend, Buckets{Persistent: "persistent", Temporal: "temporal"}, 15*time.Minute, 5*gib, nil)
}

func TestCheckPolicyTemporalAlwaysAllowed(t *testing.T) {
	service := newTestService(newFakeAccounts(), newFakeLedger(), newFakeBackend())

	decision, err := service.CheckPolicy(context.Background(), uuid.New(), 100*gib, ledger.ClassTemporal)
	if err != nil {
		t.Fatalf("CheckPolicy returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("temporal upload must always be allowed")
	}
}

func TestCheckPolicyMissingAccount(t *testing.T) {
	service := newTestService(newFakeAccounts(), newFakeLedger(), newFakeBackend())

	decision, err := service.CheckPolicy(context.Background(), uuid.New(), 1, ledger.ClassPersistent)
	if err != nil {
		t.Fatalf("CheckPolicy returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial for missing account")
	}
	if decision.Reason != "account not found" {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}
}

func TestCheckPolicyQuotaBoundary(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 900 * mib, Tier: account.TierFree}
	service := newTestService(accounts, newFakeLedger(), newFakeBackend())

	remaining := account.TierFree.Limit() - 900*mib

	decision, err := service.CheckPolicy(context.Background(), userID, remaining, ledger.ClassPersistent)
	if err != nil {
		t.Fatalf("CheckPolicy returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("exact quota fill must be allowed, got reason %q", decision.Reason)
	}

	decision, err = service.CheckPolicy(context.Background(), userID, remaining+1, ledger.ClassPersistent)
	if err != nil {
		t.Fatalf("CheckPolicy returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("one byte over quota must be denied")
	}
}

func TestIssueRegistersPendingWithoutDebit(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 900 * mib, Tier: account.TierFree}
	objects := newFakeLedger()
	backend := newFakeBackend()
	service := newTestService(accounts, objects, backend)

	grant, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:      userID,
		ObjectKey:   "library/doc.pdf",
		ContentType: "application/pdf",
		SizeBytes:   50 * mib,
		Class:       ledger.ClassPersistent,
	})
	if err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}
	if grant.UploadURL == "" {
		t.Fatalf("expected upload url")
	}

	row, ok := objects.rows["library/doc.pdf"]
	if !ok {
		t.Fatalf("expected pending ledger row")
	}
	if row.Status != ledger.StatusPending || row.SizeBytes != 50*mib {
		t.Fatalf("unexpected row state: %+v", row)
	}
	if accounts.usages[userID].UsedBytes != 900*mib {
		t.Fatalf("pending registration must not debit usage")
	}
}

func TestIssueDeniedOverQuota(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 1020 * mib, Tier: account.TierFree}
	objects := newFakeLedger()
	service := newTestService(accounts, objects, newFakeBackend())

	_, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    userID,
		ObjectKey: "library/big.bin",
		SizeBytes: 50 * mib,
		Class:     ledger.ClassPersistent,
	})
	if !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}
	if len(objects.rows) != 0 {
		t.Fatalf("denied request must not register a ledger row")
	}
}

func TestIssueTemporalSkipsLedger(t *testing.T) {
	objects := newFakeLedger()
	service := newTestService(newFakeAccounts(), objects, newFakeBackend())

	_, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    uuid.New(),
		ObjectKey: "tmp/render.png",
		SizeBytes: 10 * mib,
		Class:     ledger.ClassTemporal,
	})
	if err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}
	if len(objects.rows) != 0 {
		t.Fatalf("temporal upload must not write a ledger row")
	}
}

func TestConfirmChargesActualSize(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 900 * mib, Tier: account.TierFree}
	objects := newFakeLedger()
	backend := newFakeBackend()
	service := newTestService(accounts, objects, backend)

	if _, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		SizeBytes: 50 * mib,
		Class:     ledger.ClassPersistent,
	}); err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}

	// the object store reports a larger actual size than declared
	backend.sizes["persistent/library/doc.pdf"] = 60 * mib

	confirmation, err := service.ConfirmUpload(context.Background(), ConfirmRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		Class:     ledger.ClassPersistent,
	})
	if err != nil {
		t.Fatalf("ConfirmUpload returned error: %v", err)
	}
	if confirmation.DeltaBytes != 60*mib {
		t.Fatalf("expected delta %d, got %d", 60*mib, confirmation.DeltaBytes)
	}
	if confirmation.ActualSizeBytes != 60*mib {
		t.Fatalf("expected actual size %d, got %d", 60*mib, confirmation.ActualSizeBytes)
	}
	if got := accounts.usages[userID].UsedBytes; got != 960*mib {
		t.Fatalf("expected usage %d, got %d", 960*mib, got)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 0, Tier: account.TierFree}
	objects := newFakeLedger()
	backend := newFakeBackend()
	service := newTestService(accounts, objects, backend)

	if _, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		SizeBytes: 10 * mib,
		Class:     ledger.ClassPersistent,
	}); err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}
	backend.sizes["persistent/library/doc.pdf"] = 10 * mib

	req := ConfirmRequest{UserID: userID, ObjectKey: "library/doc.pdf", Class: ledger.ClassPersistent}

	first, err := service.ConfirmUpload(context.Background(), req)
	if err != nil {
		t.Fatalf("first ConfirmUpload returned error: %v", err)
	}
	if first.DeltaBytes != 10*mib {
		t.Fatalf("expected first delta %d, got %d", 10*mib, first.DeltaBytes)
	}

	second, err := service.ConfirmUpload(context.Background(), req)
	if err != nil {
		t.Fatalf("second ConfirmUpload returned error: %v", err)
	}
	if second.DeltaBytes != 0 {
		t.Fatalf("repeat confirmation must yield delta 0, got %d", second.DeltaBytes)
	}
	if got := accounts.usages[userID].UsedBytes; got != 10*mib {
		t.Fatalf("usage must remain %d after retry, got %d", 10*mib, got)
	}
	if accounts.deltaWrites != 1 {
		t.Fatalf("delta-0 retry must skip the account write, got %d writes", accounts.deltaWrites)
	}
}

func TestReconfirmWithCorrectedSize(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, UsedBytes: 0, Tier: account.TierPro}
	objects := newFakeLedger()
	backend := newFakeBackend()
	service := newTestService(accounts, objects, backend)

	if _, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		SizeBytes: 5 * mib,
		Class:     ledger.ClassPersistent,
	}); err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}

	req := ConfirmRequest{UserID: userID, ObjectKey: "library/doc.pdf", Class: ledger.ClassPersistent}

	backend.sizes["persistent/library/doc.pdf"] = 5 * mib
	if _, err := service.ConfirmUpload(context.Background(), req); err != nil {
		t.Fatalf("first ConfirmUpload returned error: %v", err)
	}

	backend.sizes["persistent/library/doc.pdf"] = 8 * mib
	second, err := service.ConfirmUpload(context.Background(), req)
	if err != nil {
		t.Fatalf("second ConfirmUpload returned error: %v", err)
	}
	if second.DeltaBytes != 3*mib {
		t.Fatalf("expected corrective delta %d, got %d", 3*mib, second.DeltaBytes)
	}
	if got := accounts.usages[userID].UsedBytes; got != 8*mib {
		t.Fatalf("cumulative usage must equal final size %d, got %d", 8*mib, got)
	}
}

func TestConfirmTemporalSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	service := newTestService(newFakeAccounts(), newFakeLedger(), backend)

	confirmation, err := service.ConfirmUpload(context.Background(), ConfirmRequest{
		UserID:    uuid.New(),
		ObjectKey: "tmp/render.png",
		Class:     ledger.ClassTemporal,
	})
	if err != nil {
		t.Fatalf("ConfirmUpload returned error: %v", err)
	}
	if !confirmation.Confirmed || confirmation.DeltaBytes != 0 || confirmation.ActualSizeBytes != 0 {
		t.Fatalf("unexpected temporal confirmation: %+v", confirmation)
	}
	if backend.statCalls != 0 {
		t.Fatalf("temporal confirmation must not stat the backend")
	}
}

func TestConfirmBeforeUploadFails(t *testing.T) {
	accounts := newFakeAccounts()
	userID := uuid.New()
	accounts.usages[userID] = account.Usage{UserID: userID, Tier: account.TierFree}
	objects := newFakeLedger()
	service := newTestService(accounts, objects, newFakeBackend())

	if _, err := service.IssuePresignedUpload(context.Background(), IssueRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		SizeBytes: mib,
		Class:     ledger.ClassPersistent,
	}); err != nil {
		t.Fatalf("IssuePresignedUpload returned error: %v", err)
	}

	_, err := service.ConfirmUpload(context.Background(), ConfirmRequest{
		UserID:    userID,
		ObjectKey: "library/doc.pdf",
		Class:     ledger.ClassPersistent,
	})
	if !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("expected ErrObjectMissing, got %v", err)
	}
}

func TestConfirmUntrackedKeyFails(t *testing.T) {
	backend := newFakeBackend()
	backend.sizes["persistent/rogue.bin"] = mib
	service := newTestService(newFakeAccounts(), newFakeLedger(), backend)

	_, err := service.ConfirmUpload(context.Background(), ConfirmRequest{
		UserID:    uuid.New(),
		ObjectKey: "rogue.bin",
		Class:     ledger.ClassPersistent,
	})
	if !errors.Is(err, ledger.ErrObjectNotTracked) {
		t.Fatalf("expected ErrObjectNotTracked, got %v", err)
	}
}

// --- fakes ---

type fakeAccounts struct {
	usages      map[uuid.UUID]account.Usage
	deltaWrites int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{usages: make(map[uuid.UUID]account.Usage)}
}

func (f *fakeAccounts) GetUsage(ctx context.Context, userID uuid.UUID) (account.Usage, error) {
	usage, ok := f.usages[userID]
	if !ok {
		return account.Usage{}, account.ErrAccountNotFound
	}
	return usage, nil
}

func (f *fakeAccounts) ApplyUsageDelta(ctx context.Context, userID uuid.UUID, deltaBytes int64) error {
	usage, ok := f.usages[userID]
	if !ok {
		return account.ErrAccountNotFound
	}
	usage.UsedBytes += deltaBytes
	if usage.UsedBytes < 0 {
		usage.UsedBytes = 0
	}
	f.usages[userID] = usage
	f.deltaWrites++
	return nil
}

type fakeLedger struct {
	rows map[string]ledger.Object
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]ledger.Object)}
}

func (f *fakeLedger) CreateOrUpdatePending(ctx context.Context, userID uuid.UUID, objectKey string, class ledger.BucketClass, sizeBytes int64) (ledger.Object, error) {
	row, ok := f.rows[objectKey]
	if !ok {
		row = ledger.Object{ID: uuid.New(), UserID: userID, ObjectKey: objectKey, BucketClass: class}
	}
	row.Status = ledger.StatusPending
	row.SizeBytes = sizeBytes
	row.ConfirmedAt = nil
	f.rows[objectKey] = row
	return row, nil
}

func (f *fakeLedger) Confirm(ctx context.Context, objectKey string, actualSizeBytes int64) (int64, error) {
	row, ok := f.rows[objectKey]
	if !ok {
		return 0, ledger.ErrObjectNotTracked
	}
	previous := int64(0)
	if row.Status == ledger.StatusConfirmed {
		previous = row.SizeBytes
	}
	now := time.Now()
	row.Status = ledger.StatusConfirmed
	row.SizeBytes = actualSizeBytes
	row.ConfirmedAt = &now
	f.rows[objectKey] = row
	return actualSizeBytes - previous, nil
}

type fakeBackend struct {
	sizes     map[string]int64
	statCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sizes: make(map[string]int64)}
}

func (f *fakeBackend) PresignedPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return "https://store.example.com/" + bucket + "/" + key + "?sig=test", nil
}

func (f *fakeBackend) Stat(ctx context.Context, bucket, key string) (objstore.ObjectInfo, error) {
	f.statCalls++
	size, ok := f.sizes[bucket+"/"+key]
	if !ok {
		return objstore.ObjectInfo{}, objstore.ErrObjectNotFound
	}
	return objstore.ObjectInfo{SizeBytes: size, ETag: "etag"}, nil
}
