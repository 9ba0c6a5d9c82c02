package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/festivo-app/festivo/internal/eligibility"
	"github.com/festivo-app/festivo/internal/ratelimit"
)

// fakeStore keeps everything in memory and serializes Transition calls,
// mirroring the row lock the pgx implementation takes.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*Booking
	packages map[string]*PackageInfo
	owners   map[string][]string // supplierID -> owner user ids
	idemKeys map[string][2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: map[string]*Booking{},
		packages: map[string]*PackageInfo{},
		owners:   map[string][]string{},
		idemKeys: map[string][2]string{},
	}
}

func (f *fakeStore) Create(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.bookings {
		if other.SupplierID == b.SupplierID && other.EventDate.Equal(b.EventDate) && IsActive(other.Status) {
			return ErrDateConflict
		}
	}
	f.seq++
	b.ID = fmt.Sprintf("bk-%d", f.seq)
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeStore) ByID(ctx context.Context, id string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) Transition(ctx context.Context, id string, fn TransitionFunc) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	write, err := fn(ctx, f, &cp)
	if err != nil {
		return nil, err
	}
	if write {
		cp.UpdatedAt = time.Now().UTC()
		stored := cp
		f.bookings[id] = &stored
	}
	out := cp
	return &out, nil
}

func (f *fakeStore) FindActiveDuplicate(ctx context.Context, clientID, supplierID, packageID string, day time.Time) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ClientID == clientID && b.SupplierID == supplierID && b.PackageID == packageID &&
			b.EventDate.Equal(day) && IsActive(b.Status) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) HasActiveOnDay(ctx context.Context, supplierID string, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.SupplierID == supplierID && b.EventDate.Equal(day) && IsActive(b.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Package(ctx context.Context, packageID string) (*PackageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[packageID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SupplierOwnerIDs(ctx context.Context, supplierID string) ([]string, error) {
	return f.owners[supplierID], nil
}

func (f *fakeStore) OverduePendingIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, b := range f.bookings {
		if b.Status == StatusPending && b.EventDate.Before(before) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) LookupIdempotencyKey(ctx context.Context, key string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.idemKeys[key]
	if !ok {
		return "", "", nil
	}
	return rec[0], rec[1], nil
}

func (f *fakeStore) SaveIdempotencyKey(ctx context.Context, key, requestHash, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idemKeys[key] = [2]string{bookingID, requestHash}
	return nil
}

type fakeLimiter struct {
	mu     sync.Mutex
	denied map[string]int // window name -> retry after
	calls  []string
}

func (f *fakeLimiter) Check(ctx context.Context, scopeKey, actionKey string, limit, windowSeconds int) (ratelimit.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, actionKey)
	for window, retry := range f.denied {
		if actionKey == "booking_create:"+window {
			return ratelimit.Decision{Allowed: false, RetryAfterSeconds: retry}, nil
		}
	}
	return ratelimit.Decision{Allowed: true}, nil
}

type fakeOracle struct {
	ineligible map[string][]string
}

func (f *fakeOracle) IsSupplierBookable(ctx context.Context, supplierID string, date time.Time) (eligibility.Result, error) {
	if reasons, ok := f.ineligible[supplierID]; ok {
		return eligibility.Result{Eligible: false, Reasons: reasons}, nil
	}
	return eligibility.Result{Eligible: true}, nil
}

type escrowCall struct {
	method string
	args   []string
}

type fakeEscrow struct {
	mu    sync.Mutex
	calls []escrowCall
}

func (f *fakeEscrow) record(method string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, escrowCall{method: method, args: args})
}

func (f *fakeEscrow) OnBookingCompleted(ctx context.Context, bookingID string) {
	f.record("completed", bookingID)
}

func (f *fakeEscrow) OnBookingCancelled(ctx context.Context, bookingID, actorTag, reason string) {
	f.record("cancelled", bookingID, actorTag, reason)
}

func (f *fakeEscrow) OnPaymentRecorded(ctx context.Context, bookingID string, totalPaid int64) {
	f.record("payment", bookingID)
}

type fakeBlocks struct {
	mu   sync.Mutex
	held map[string]string // bookingID -> supplierID
}

func (f *fakeBlocks) Hold(ctx context.Context, supplierID string, day time.Time, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]string{}
	}
	f.held[bookingID] = supplierID
	return nil
}

func (f *fakeBlocks) Release(ctx context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, bookingID)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string // "userID/type"
}

func (f *fakeNotifier) Notify(userID, typ, title, body, reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, userID+"/"+typ)
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string // "category/eventType"
}

func (f *fakeAudit) Record(ctx context.Context, category, eventType, actorID, resourceID string, before, after, metadata any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, category+"/"+eventType)
	return nil
}

func (f *fakeAudit) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeRebuilds struct {
	mu    sync.Mutex
	count int
}

func (f *fakeRebuilds) BookingChanged(ctx context.Context, clientID, supplierID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
}

type serviceFixture struct {
	store    *fakeStore
	limits   *fakeLimiter
	oracle   *fakeOracle
	escrow   *fakeEscrow
	blocks   *fakeBlocks
	notifier *fakeNotifier
	audit    *fakeAudit
	rebuilds *fakeRebuilds
	svc      *Service
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		store:    newFakeStore(),
		limits:   &fakeLimiter{},
		oracle:   &fakeOracle{ineligible: map[string][]string{}},
		escrow:   &fakeEscrow{},
		blocks:   &fakeBlocks{},
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
		rebuilds: &fakeRebuilds{},
	}
	f.store.packages["pkg-1"] = &PackageInfo{ID: "pkg-1", SupplierID: "sup-1", Name: "Gold Package", Price: 50000}
	f.store.owners["sup-1"] = []string{"owner-1", "owner-legacy"}
	f.svc = NewService(f.store, f.limits, f.oracle, f.escrow, f.blocks, f.notifier, f.audit, f.rebuilds)
	return f
}

// payer is the fixture booking's client, the only non-admin actor allowed to
// record payments against it.
var payer = Actor{ID: "client-1", Role: RoleClient}

func (f *serviceFixture) createInput() CreateInput {
	return CreateInput{
		ClientID:   "client-1",
		SupplierID: "sup-1",
		PackageID:  "pkg-1",
		EventDate:  time.Date(2026, 10, 12, 14, 30, 0, 0, time.UTC),
		IP:         "10.0.0.1",
		DeviceID:   "dev-1",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Replay {
		t.Error("fresh creation reported as replay")
	}
	b := res.Booking
	if b.Status != StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	if b.TotalPrice != 50000 {
		t.Errorf("total price = %d, want canonical package price 50000", b.TotalPrice)
	}
	if !b.EventDate.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("event date not truncated to day: %v", b.EventDate)
	}
	if got := f.notifier.sent; len(got) != 1 || got[0] != "sup-1/booking_request" {
		t.Errorf("supplier notification = %v", got)
	}
	if f.audit.count("booking/created") != 1 {
		t.Errorf("audit events = %v", f.audit.events)
	}
	if f.rebuilds.count != 1 {
		t.Errorf("rebuild triggers = %d, want 1", f.rebuilds.count)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture()
	in := f.createInput()
	in.SupplierID = ""
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("missing supplier: err = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateIdempotencyKeyReplay(t *testing.T) {
	f := newFixture()
	in := f.createInput()
	in.IdempotencyKey = "key-1"

	first, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("replay create: %v", err)
	}
	if !second.Replay || second.Booking.ID != first.Booking.ID {
		t.Errorf("replay returned %+v, want original booking %s", second, first.Booking.ID)
	}
	if len(f.store.bookings) != 1 {
		t.Errorf("bookings stored = %d, want 1", len(f.store.bookings))
	}

	// Same key, different payload: refused, not silently honored.
	in.PackageID = "pkg-1"
	in.EventDate = in.EventDate.AddDate(0, 0, 1)
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrIdempotencyMismatch) {
		t.Errorf("mismatched payload: err = %v, want ErrIdempotencyMismatch", err)
	}
}

func TestCreateDuplicateProbe(t *testing.T) {
	f := newFixture()
	in := f.createInput()

	first, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// No idempotency key this time; the duplicate probe still finds the
	// active twin.
	dup, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if !dup.Replay || dup.Booking.ID != first.Booking.ID {
		t.Errorf("duplicate probe returned %+v, want booking %s", dup, first.Booking.ID)
	}
	if len(f.store.bookings) != 1 {
		t.Errorf("bookings stored = %d, want 1", len(f.store.bookings))
	}
}

func TestCreateRateLimited(t *testing.T) {
	f := newFixture()
	f.limits.denied = map[string]int{"user-hourly": 1800}

	_, err := f.svc.Create(context.Background(), f.createInput())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err %v is not a *RateLimitError", err)
	}
	if rl.Window != "user-hourly" || rl.RetryAfter != 1800 {
		t.Errorf("rate limit detail = %+v", rl)
	}
	if len(f.store.bookings) != 0 {
		t.Error("booking created despite rate limit")
	}
}

func TestCreateSupplierIneligible(t *testing.T) {
	f := newFixture()
	f.oracle.ineligible["sup-1"] = []string{"kyc_pending"}

	_, err := f.svc.Create(context.Background(), f.createInput())
	if !errors.Is(err, ErrSupplierIneligible) {
		t.Errorf("err = %v, want ErrSupplierIneligible", err)
	}
}

func TestCreateDateConflict(t *testing.T) {
	f := newFixture()
	in := f.createInput()
	if _, err := f.svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A different client wants the same supplier day.
	in.ClientID = "client-2"
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrDateConflict) {
		t.Errorf("err = %v, want ErrDateConflict", err)
	}
}

func TestRespondConfirmRequiresPayment(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID
	owner := Actor{ID: "owner-1", Role: RoleSupplier}

	if _, err := f.svc.Respond(context.Background(), id, owner, ActionConfirm, ""); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("confirm with no payment: err = %v, want ErrPaymentRequired", err)
	}

	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 50000); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	b, err := f.svc.Respond(context.Background(), id, owner, ActionConfirm, "")
	if err != nil {
		t.Fatalf("confirm after payment: %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", b.Status)
	}
	if f.blocks.held[id] != "sup-1" {
		t.Error("confirmation did not hold the supplier's calendar day")
	}
}

func TestRespondOwnershipInsideTransition(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := Actor{ID: "owner-other", Role: RoleSupplier}
	if _, err := f.svc.Respond(context.Background(), res.Booking.ID, stranger, ActionReject, ""); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger respond: err = %v, want ErrNotOwner", err)
	}

	// Legacy alias ids count as owners.
	legacy := Actor{ID: "owner-legacy", Role: RoleSupplier}
	b, err := f.svc.Respond(context.Background(), res.Booking.ID, legacy, ActionReject, "")
	if err != nil {
		t.Fatalf("legacy owner reject: %v", err)
	}
	if b.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
	if b.Reason != "rejected by supplier" {
		t.Errorf("reason = %q, want default rejection reason", b.Reason)
	}
}

func TestRejectRefundsEscrow(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.RecordPayment(context.Background(), res.Booking.ID, payer, 50000); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	owner := Actor{ID: "owner-1", Role: RoleSupplier}
	if _, err := f.svc.Respond(context.Background(), res.Booking.ID, owner, ActionReject, "double booked"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	var cancelled *escrowCall
	for i := range f.escrow.calls {
		if f.escrow.calls[i].method == "cancelled" {
			cancelled = &f.escrow.calls[i]
		}
	}
	if cancelled == nil {
		t.Fatal("escrow never saw the cancellation")
	}
	if cancelled.args[1] != "supplier:owner-1" || cancelled.args[2] != "double booked" {
		t.Errorf("escrow cancellation args = %v", cancelled.args)
	}
}

func TestConcurrentConfirms(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID
	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 50000); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	auditBefore := f.audit.count("booking/status_changed")

	owner := Actor{ID: "owner-1", Role: RoleSupplier}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Respond(context.Background(), id, owner, ActionConfirm, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("confirm %d failed: %v", i, err)
		}
	}
	b, _ := f.svc.Get(context.Background(), id)
	if b.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", b.Status)
	}
	// Exactly one of the two performed the write; the loser took the
	// idempotent path and produced no second audit event.
	if got := f.audit.count("booking/status_changed") - auditBefore; got != 1 {
		t.Errorf("status_changed audit events = %d, want 1", got)
	}
}

func TestCancelIdempotent(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	client := Actor{ID: "client-1", Role: RoleClient}

	if _, err := f.svc.Cancel(context.Background(), res.Booking.ID, client, "changed plans"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	audits := f.audit.count("booking/status_changed")

	b, err := f.svc.Cancel(context.Background(), res.Booking.ID, client, "changed plans")
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if b.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
	if got := f.audit.count("booking/status_changed"); got != audits {
		t.Errorf("second cancel produced extra audit events: %d -> %d", audits, got)
	}
}

func TestCancelCompletedRejected(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID
	owner := Actor{ID: "owner-1", Role: RoleSupplier}

	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 50000); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if _, err := f.svc.Respond(context.Background(), id, owner, ActionConfirm, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), id, owner, StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = f.svc.Cancel(context.Background(), id, owner, "")
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("cancel completed: err = %v, want *TransitionError", err)
	}
	if te.From != StatusCompleted || te.To != StatusCancelled {
		t.Errorf("transition error = %+v", te)
	}
}

func TestCompleteTriggersEscrow(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID
	owner := Actor{ID: "owner-1", Role: RoleSupplier}

	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 50000); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if _, err := f.svc.Respond(context.Background(), id, owner, ActionConfirm, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), id, owner, StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	found := false
	for _, call := range f.escrow.calls {
		if call.method == "completed" && call.args[0] == id {
			found = true
		}
	}
	if !found {
		t.Error("completion never reached the escrow coordinator")
	}
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID

	// Nothing overdue yet.
	if n, err := f.svc.ExpireOverdue(context.Background()); err != nil || n != 0 {
		t.Fatalf("premature sweep: n=%d err=%v", n, err)
	}

	// The event day passes without a supplier response.
	f.store.mu.Lock()
	f.store.bookings[id].EventDate = Day(time.Now().UTC().AddDate(0, 0, -2))
	f.store.mu.Unlock()

	n, err := f.svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	b, _ := f.svc.Get(context.Background(), id)
	if b.Status != StatusExpired {
		t.Errorf("status = %s, want expired", b.Status)
	}
	if b.TransitionedBy != "system:expiry-sweep" {
		t.Errorf("transitioned by = %q", b.TransitionedBy)
	}

	// The sweep is idempotent.
	if n, err := f.svc.ExpireOverdue(context.Background()); err != nil || n != 0 {
		t.Errorf("second sweep: n=%d err=%v", n, err)
	}
}

func TestRecordPayment(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID

	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero amount: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.svc.RecordPayment(context.Background(), id, payer, -100); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative amount: err = %v, want ErrInvalidArgument", err)
	}

	if _, err := f.svc.RecordPayment(context.Background(), id, payer, 20000); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	b, err := f.svc.RecordPayment(context.Background(), id, payer, 30000)
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if b.PaidAmount != 50000 {
		t.Errorf("paid amount = %d, want 50000", b.PaidAmount)
	}
	if !b.FullyPaid() {
		t.Error("booking not reported fully paid")
	}
}

func TestRecordPaymentOnlyClientOrAdmin(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := res.Booking.ID

	stranger := Actor{ID: "client-other", Role: RoleClient}
	if _, err := f.svc.RecordPayment(context.Background(), id, stranger, 10000); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger payment: err = %v, want ErrNotOwner", err)
	}
	supplier := Actor{ID: "owner-1", Role: RoleSupplier}
	if _, err := f.svc.RecordPayment(context.Background(), id, supplier, 10000); !errors.Is(err, ErrNotOwner) {
		t.Errorf("supplier payment: err = %v, want ErrNotOwner", err)
	}

	admin := Actor{ID: "ops-1", Role: RoleAdmin}
	b, err := f.svc.RecordPayment(context.Background(), id, admin, 10000)
	if err != nil {
		t.Fatalf("admin payment: %v", err)
	}
	if b.PaidAmount != 10000 {
		t.Errorf("paid amount = %d, want 10000", b.PaidAmount)
	}
}
