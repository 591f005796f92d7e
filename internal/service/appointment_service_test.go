package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/cache"
	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// fakeStore is an in-memory stand-in for AppointmentRepo.  It
// implements both the write surface the service commits to and the read
// surface the cache falls back to, so the cache-consistency tests run
// against the same data the service mutates.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	appts  map[uint64]model.Appointment
	broken bool // when set, every read fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, appts: map[uint64]model.Appointment{}}
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) Create(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a.CreatedAt, a.UpdatedAt = now, now
	for i := range a.Assignments {
		a.Assignments[i].AppointmentID = a.ID
	}
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeStore) Update(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	f.appts[a.ID] = *a
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint64, status model.Status) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return time.Time{}, repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	f.appts[id] = a
	return a.UpdatedAt, nil
}

func (f *fakeStore) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.appts, id)
	return nil
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := false
	for id, a := range f.appts {
		if a.StartTime.Before(cutoff) {
			delete(f.appts, id)
			deleted = true
		}
	}
	return deleted, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return model.Appointment{}, errStoreDown
	}
	a, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) list(match func(model.Appointment) bool) []model.Appointment {
	out := []model.Appointment{}
	for _, a := range f.appts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (f *fakeStore) ListByCustomer(_ context.Context, id uint64) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return nil, errStoreDown
	}
	return f.list(func(a model.Appointment) bool { return a.CustomerID == id }), nil
}

func (f *fakeStore) ListByBusiness(_ context.Context, id uint64) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return nil, errStoreDown
	}
	return f.list(func(a model.Appointment) bool { return a.BusinessID == id }), nil
}

func (f *fakeStore) ListByStaff(_ context.Context, id uint64) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return nil, errStoreDown
	}
	return f.list(func(a model.Appointment) bool {
		for _, as := range a.Assignments {
			if as.StaffID == id {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return nil, errStoreDown
	}
	return f.list(func(model.Appointment) bool { return true }), nil
}

// fakeCatalog implements Directory.
type fakeCatalog struct {
	businesses map[uint64]model.Business
	staff      map[uint64]model.Staff
	services   map[uint64]model.Service
}

func (f *fakeCatalog) GetByID(_ context.Context, id uint64) (model.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return model.Business{}, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeCatalog) GetStaff(_ context.Context, id uint64) (model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.Staff{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeCatalog) ServicesByIDs(_ context.Context, ids []uint64) ([]model.Service, error) {
	out := []model.Service{}
	for _, id := range ids {
		if s, ok := f.services[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeAvailability records the exclude id it was called with.
type fakeAvailability struct {
	ok          bool
	lastExclude uint64
}

func (f *fakeAvailability) IsStaffAvailable(_ context.Context, _ uint64, _ time.Time, _ time.Duration, excludeID uint64) (bool, error) {
	f.lastExclude = excludeID
	return f.ok, nil
}

type fakeEvents struct {
	booked    []uint64
	cancelled []uint64
}

func (f *fakeEvents) PublishAppointmentBooked(_ context.Context, a model.Appointment) error {
	f.booked = append(f.booked, a.ID)
	return nil
}

func (f *fakeEvents) PublishAppointmentCancelled(_ context.Context, a model.Appointment) error {
	f.cancelled = append(f.cancelled, a.ID)
	return nil
}

type world struct {
	svc    *AppointmentService
	store  *fakeStore
	avail  *fakeAvailability
	events *fakeEvents
	cache  *cache.AppointmentCache
}

// newWorld wires the service against the fakes and a real cache over an
// in-memory store, with the clock fixed at midnight March 1st and a
// two-hour client offset.
func newWorld() *world {
	store := newFakeStore()
	catalog := &fakeCatalog{
		businesses: map[uint64]model.Business{10: {ID: 10, OwnerID: 3, Name: "Shear Genius"}},
		staff: map[uint64]model.Staff{
			1: {ID: 1, BusinessID: 10, Name: "Ann", Active: true},
			2: {ID: 2, BusinessID: 10, Name: "Bo", Active: false},
			4: {ID: 4, BusinessID: 10, Name: "Cleo", Active: true},
			5: {ID: 5, BusinessID: 99, Name: "Stranger", Active: true},
		},
		services: map[uint64]model.Service{
			100: {ID: 100, BusinessID: 10, Name: "Cut", DurationMin: 30},
			101: {ID: 101, BusinessID: 10, Name: "Color", DurationMin: 45},
			200: {ID: 200, BusinessID: 99, Name: "Elsewhere", DurationMin: 30},
		},
	}
	avail := &fakeAvailability{ok: true}
	events := &fakeEvents{}
	apptCache := cache.NewAppointmentCache(cache.NewMemoryStore(), store, time.Minute, "test")
	now := func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	svc := NewAppointmentService(store, catalog, avail, apptCache, NoopSlotLock{}, events, 2*time.Hour, now)
	return &world{svc: svc, store: store, avail: avail, events: events, cache: apptCache}
}

func validInput() CreateInput {
	return CreateInput{
		CustomerID: 7,
		BusinessID: 10,
		StaffID:    1,
		// Client convention is two hours ahead of storage time.
		StartTime:  time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		ServiceIDs: []uint64{100, 101, 100},
		Comment:    "first visit",
	}
}

func TestCreateAppointment(t *testing.T) {
	w := newWorld()
	appt, err := w.svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if appt.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if appt.Status != model.StatusPending {
		t.Errorf("status = %s, want PENDING", appt.Status)
	}
	// 30 + 45, the duplicate service id counted once.
	if appt.DurationMin != 75 {
		t.Errorf("duration = %d, want 75", appt.DurationMin)
	}
	wantStart := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !appt.StartTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v (client offset applied)", appt.StartTime, wantStart)
	}
	if len(appt.Assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(appt.Assignments))
	}
	for _, as := range appt.Assignments {
		if as.StaffID != 1 || as.AppointmentID != appt.ID {
			t.Errorf("unexpected assignment %+v", as)
		}
	}
	if len(w.events.booked) != 1 || w.events.booked[0] != appt.ID {
		t.Errorf("booked events = %v", w.events.booked)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{"unknown business", func(in *CreateInput) { in.BusinessID = 55 }, "business_id"},
		{"unknown staff", func(in *CreateInput) { in.StaffID = 77 }, "staff_id"},
		{"staff of another business", func(in *CreateInput) { in.StaffID = 5 }, "staff_id"},
		{"inactive staff", func(in *CreateInput) { in.StaffID = 2 }, "staff_id"},
		{"empty services", func(in *CreateInput) { in.ServiceIDs = nil }, "service_ids"},
		{"unknown service", func(in *CreateInput) { in.ServiceIDs = []uint64{100, 999} }, "service_ids"},
		{"service of another business", func(in *CreateInput) { in.ServiceIDs = []uint64{200} }, "service_ids"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorld()
			in := validInput()
			tc.mutate(&in)
			_, err := w.svc.Create(context.Background(), in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
			if len(w.store.appts) != 0 {
				t.Error("nothing should have been stored")
			}
		})
	}
}

func TestCreatePastTime(t *testing.T) {
	w := newWorld()
	in := validInput()
	in.StartTime = time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
	_, err := w.svc.Create(context.Background(), in)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCreateSlotTaken(t *testing.T) {
	w := newWorld()
	w.avail.ok = false
	_, err := w.svc.Create(context.Background(), validInput())
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}
	if len(w.store.appts) != 0 {
		t.Error("nothing should have been stored")
	}
}

func TestUpdateRebooks(t *testing.T) {
	w := newWorld()
	appt, err := w.svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := w.svc.Update(context.Background(), appt.ID, UpdateInput{
		StaffID:    1,
		ServiceIDs: []uint64{100},
		StartTime:  time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC),
		Comment:    "moved",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if w.avail.lastExclude != appt.ID {
		t.Errorf("overlap check excluded id %d, want %d", w.avail.lastExclude, appt.ID)
	}
	if updated.DurationMin != 30 {
		t.Errorf("duration = %d, want 30", updated.DurationMin)
	}
	wantStart := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	if !updated.StartTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v", updated.StartTime, wantStart)
	}
	if updated.CustomerID != appt.CustomerID || updated.BusinessID != appt.BusinessID {
		t.Error("customer and business must not change on update")
	}
}

func TestUpdateMovesAppointmentBetweenStaffLists(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	appt, err := w.svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Warm both staff scopes so the refresh has cached lists to patch.
	if _, err := w.svc.ListByStaff(ctx, 1); err != nil {
		t.Fatalf("warm staff 1: %v", err)
	}
	if _, err := w.svc.ListByStaff(ctx, 4); err != nil {
		t.Fatalf("warm staff 4: %v", err)
	}

	if _, err := w.svc.Update(ctx, appt.ID, UpdateInput{
		StaffID:    4,
		ServiceIDs: []uint64{100},
		StartTime:  time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Serve the follow-up reads from the cache alone.
	w.store.broken = true
	old, err := w.svc.ListByStaff(ctx, 1)
	if err != nil {
		t.Fatalf("ListByStaff(1): %v", err)
	}
	if len(old) != 0 {
		t.Errorf("previous staff list still holds %d items", len(old))
	}
	cur, err := w.svc.ListByStaff(ctx, 4)
	if err != nil {
		t.Fatalf("ListByStaff(4): %v", err)
	}
	if len(cur) != 1 || cur[0].ID != appt.ID {
		t.Errorf("new staff list = %+v, want appointment %d", cur, appt.ID)
	}
}

func TestUpdateTerminalRejected(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())
	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := w.svc.Update(context.Background(), appt.ID, UpdateInput{
		StaffID:    1,
		ServiceIDs: []uint64{100},
		StartTime:  time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestStatusStateMachine(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())

	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusDone); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("PENDING -> DONE: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusConfirmed); err != nil {
		t.Fatalf("PENDING -> CONFIRMED: %v", err)
	}
	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusDone); err != nil {
		t.Fatalf("CONFIRMED -> DONE: %v", err)
	}
	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("DONE -> CANCELLED: err = %v, want ErrInvalidTransition", err)
	}
	if len(w.events.cancelled) != 0 {
		t.Error("no cancellation event expected")
	}
}

func TestStatusChangeReturnsNewUpdatedAt(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())

	got, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("PENDING -> CONFIRMED: %v", err)
	}
	if !got.UpdatedAt.After(appt.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want later than %v", got.UpdatedAt, appt.UpdatedAt)
	}
	stored, _ := w.store.GetByID(context.Background(), appt.ID)
	if !got.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("returned UpdatedAt %v differs from stored %v", got.UpdatedAt, stored.UpdatedAt)
	}
}

func TestCancelPublishesEvent(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())
	if _, err := w.svc.UpdateStatus(context.Background(), appt.ID, model.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(w.events.cancelled) != 1 || w.events.cancelled[0] != appt.ID {
		t.Errorf("cancelled events = %v", w.events.cancelled)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())

	// Populate the customer list scope so the delete has something to patch.
	if items, err := w.svc.ListByCustomer(context.Background(), appt.CustomerID); err != nil || len(items) != 1 {
		t.Fatalf("ListByCustomer = %v, %v", items, err)
	}
	if err := w.svc.Delete(context.Background(), appt.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := w.svc.GetByID(context.Background(), appt.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("GetByID after delete: err = %v, want ErrNotFound", err)
	}
	items, err := w.svc.ListByCustomer(context.Background(), appt.CustomerID)
	if err != nil {
		t.Fatalf("ListByCustomer: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("customer list still holds %d items after delete", len(items))
	}
}

func TestDeleteBefore(t *testing.T) {
	w := newWorld()
	cutoff := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	deleted, err := w.svc.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted {
		t.Fatal("empty sweep should report false")
	}

	appt, _ := w.svc.Create(context.Background(), validInput())
	deleted, err = w.svc.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if !deleted {
		t.Fatal("sweep should report true after removing a row")
	}
	if _, err := w.svc.GetByID(context.Background(), appt.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("appointment survived the sweep: %v", err)
	}
}

func TestCacheReflectsUpdateImmediately(t *testing.T) {
	w := newWorld()
	appt, _ := w.svc.Create(context.Background(), validInput())

	// Warm every scope, then cut the durable store off.  Subsequent
	// reads can only come from the cache.
	if _, err := w.svc.ListByStaff(context.Background(), 1); err != nil {
		t.Fatalf("warm staff list: %v", err)
	}
	if _, err := w.svc.Update(context.Background(), appt.ID, UpdateInput{
		StaffID:    1,
		ServiceIDs: []uint64{101},
		StartTime:  time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	w.store.broken = true

	got, err := w.svc.GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("GetByID from cache: %v", err)
	}
	wantStart := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if !got.StartTime.Equal(wantStart) {
		t.Errorf("cached start = %v, want %v", got.StartTime, wantStart)
	}
	items, err := w.svc.ListByStaff(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListByStaff from cache: %v", err)
	}
	if len(items) != 1 || !items[0].StartTime.Equal(wantStart) {
		t.Errorf("cached staff list = %+v", items)
	}
}
