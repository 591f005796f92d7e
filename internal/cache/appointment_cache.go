package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// AppointmentSource is the durable-store read surface the cache falls
// back to on a miss.  *repository.AppointmentRepo satisfies it.
type AppointmentSource interface {
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Appointment, error)
	ListByBusiness(ctx context.Context, businessID uint64) ([]model.Appointment, error)
	ListByStaff(ctx context.Context, staffID uint64) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
}

// listEnvelope wraps cached lists so that a present-but-empty list is
// distinguishable from a missing key.  Key presence, never list length,
// is the miss signal.
type listEnvelope struct {
	Items []model.Appointment `json:"items"`
}

// AppointmentCache is a read-through, TTL-based cache over the
// appointment query scopes: by id, by customer, by business, by staff
// and the global list.  Reads populate the cache on miss; every
// committed write must call Refresh so each scope derivable from the
// written appointment's foreign keys is overwritten or dropped.
//
// The cache fails open: any Store error is logged and treated as a
// miss on reads and ignored on writes, with TTL expiry as the backstop
// for any refresh that was missed.
type AppointmentCache struct {
	store  Store
	src    AppointmentSource
	ttl    time.Duration
	prefix string
}

// NewAppointmentCache builds the cache layer.  ttl <= 0 falls back to
// ten minutes.
func NewAppointmentCache(store Store, src AppointmentSource, ttl time.Duration, prefix string) *AppointmentCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if prefix == "" {
		prefix = "booking"
	}
	return &AppointmentCache{store: store, src: src, ttl: ttl, prefix: prefix}
}

// Key builders.  Every cache entry for appointments lives under the
// configured prefix so DeletePattern can drop the whole read model.

func (c *AppointmentCache) keyByID(id uint64) string {
	return fmt.Sprintf("%s:appointment:%d", c.prefix, id)
}

func (c *AppointmentCache) keyByCustomer(id uint64) string {
	return fmt.Sprintf("%s:appointments:customer:%d", c.prefix, id)
}

func (c *AppointmentCache) keyByBusiness(id uint64) string {
	return fmt.Sprintf("%s:appointments:business:%d", c.prefix, id)
}

func (c *AppointmentCache) keyByStaff(id uint64) string {
	return fmt.Sprintf("%s:appointments:staff:%d", c.prefix, id)
}

func (c *AppointmentCache) keyAll() string {
	return fmt.Sprintf("%s:appointments:all", c.prefix)
}

// GetByID returns one appointment, serving from cache when possible.
// A durable-store ErrNotFound is passed through untouched.
func (c *AppointmentCache) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	key := c.keyByID(id)
	if bs, ok := c.get(ctx, key); ok {
		var a model.Appointment
		if err := json.Unmarshal(bs, &a); err == nil {
			return a, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		_ = c.store.Delete(ctx, key)
	}
	a, err := c.src.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	c.put(ctx, key, a)
	return a, nil
}

// ListByCustomer returns the customer's appointments through the cache.
func (c *AppointmentCache) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Appointment, error) {
	return c.readThroughList(ctx, c.keyByCustomer(customerID), func(ctx context.Context) ([]model.Appointment, error) {
		return c.src.ListByCustomer(ctx, customerID)
	})
}

// ListByBusiness returns the business's appointments through the cache.
func (c *AppointmentCache) ListByBusiness(ctx context.Context, businessID uint64) ([]model.Appointment, error) {
	return c.readThroughList(ctx, c.keyByBusiness(businessID), func(ctx context.Context) ([]model.Appointment, error) {
		return c.src.ListByBusiness(ctx, businessID)
	})
}

// ListByStaff returns the staff member's appointments through the cache.
func (c *AppointmentCache) ListByStaff(ctx context.Context, staffID uint64) ([]model.Appointment, error) {
	return c.readThroughList(ctx, c.keyByStaff(staffID), func(ctx context.Context) ([]model.Appointment, error) {
		return c.src.ListByStaff(ctx, staffID)
	})
}

// ListAll returns every appointment through the global cache scope.
func (c *AppointmentCache) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return c.readThroughList(ctx, c.keyAll(), func(ctx context.Context) ([]model.Appointment, error) {
		return c.src.ListAll(ctx)
	})
}

// readThroughList serves a list scope from cache, querying the durable
// store and populating the key on a miss.  An empty store result is
// cached as a present, empty envelope.
func (c *AppointmentCache) readThroughList(ctx context.Context, key string, query func(context.Context) ([]model.Appointment, error)) ([]model.Appointment, error) {
	if bs, ok := c.get(ctx, key); ok {
		var env listEnvelope
		if err := json.Unmarshal(bs, &env); err == nil {
			if env.Items == nil {
				env.Items = []model.Appointment{}
			}
			return env.Items, nil
		}
		_ = c.store.Delete(ctx, key)
	}
	items, err := query(ctx)
	if err != nil {
		return nil, err
	}
	c.putList(ctx, key, items)
	return items, nil
}

// Refresh brings every scope touched by a committed write back in line
// with the durable store.  The id scope is re-fetched (or dropped when
// the appointment was deleted); list scopes that are currently cached
// are patched in place via updateList/removeFromList, and the rest are
// left to read-through.  staffIDs must cover the union of staff
// assigned before and after the mutation.  Errors are logged and never
// returned: the write already succeeded and TTL expiry bounds any
// staleness.
func (c *AppointmentCache) Refresh(ctx context.Context, appointmentID, customerID, businessID uint64, staffIDs []uint64, deleted bool) {
	idKey := c.keyByID(appointmentID)
	var current *model.Appointment
	if deleted {
		if err := c.store.Delete(ctx, idKey); err != nil {
			log.Printf("cache: delete %s failed: %v", idKey, err)
		}
	} else {
		a, err := c.src.GetByID(ctx, appointmentID)
		if err != nil {
			// The row vanished between commit and refresh; treat as a delete.
			if !errors.Is(err, repository.ErrNotFound) {
				log.Printf("cache: refresh fetch id=%d failed: %v", appointmentID, err)
				return
			}
			deleted = true
			_ = c.store.Delete(ctx, idKey)
		} else {
			current = &a
			c.put(ctx, idKey, a)
		}
	}

	keys := []string{c.keyByCustomer(customerID), c.keyByBusiness(businessID), c.keyAll()}
	for _, key := range keys {
		if deleted || current == nil {
			c.removeFromList(ctx, key, appointmentID)
			continue
		}
		c.updateList(ctx, key, *current)
	}
	// Staff scopes differ from the immutable scopes above: an update can
	// reassign the appointment, so a staff id in staffIDs may no longer
	// appear in the row. Those lists get a removal, not a reinsert.
	assigned := make(map[uint64]struct{})
	if current != nil {
		for _, sid := range current.StaffIDs() {
			assigned[sid] = struct{}{}
		}
	}
	for _, sid := range staffIDs {
		key := c.keyByStaff(sid)
		if _, ok := assigned[sid]; !ok || deleted || current == nil {
			c.removeFromList(ctx, key, appointmentID)
			continue
		}
		c.updateList(ctx, key, *current)
	}
}

// RefreshAll drops every appointment key, id and list scopes alike.
// Used after bulk maintenance sweeps where recomputing the affected
// scopes one by one would cost more than letting reads repopulate them.
func (c *AppointmentCache) RefreshAll(ctx context.Context) {
	if err := c.store.DeletePattern(ctx, c.prefix+":appointment*"); err != nil {
		log.Printf("cache: delete pattern failed: %v", err)
	}
}

// updateList patches a cached list in place: the appointment is removed
// by id, reinserted, and the list reordered by start time descending.
// When the key is not cached nothing happens; the next read-through
// repopulates it from the store.
func (c *AppointmentCache) updateList(ctx context.Context, key string, a model.Appointment) {
	env, ok := c.getList(ctx, key)
	if !ok {
		return
	}
	items := make([]model.Appointment, 0, len(env.Items)+1)
	for _, it := range env.Items {
		if it.ID != a.ID {
			items = append(items, it)
		}
	}
	items = append(items, a)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime.After(items[j].StartTime)
	})
	c.putList(ctx, key, items)
}

// removeFromList drops one appointment from a cached list, leaving the
// (possibly empty) list cached.  Missing keys are left alone.
func (c *AppointmentCache) removeFromList(ctx context.Context, key string, id uint64) {
	env, ok := c.getList(ctx, key)
	if !ok {
		return
	}
	items := make([]model.Appointment, 0, len(env.Items))
	for _, it := range env.Items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	c.putList(ctx, key, items)
}

func (c *AppointmentCache) get(ctx context.Context, key string) ([]byte, bool) {
	bs, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("cache: get %s failed: %v", key, err)
		return nil, false
	}
	return bs, ok
}

func (c *AppointmentCache) getList(ctx context.Context, key string) (listEnvelope, bool) {
	bs, ok := c.get(ctx, key)
	if !ok {
		return listEnvelope{}, false
	}
	var env listEnvelope
	if err := json.Unmarshal(bs, &env); err != nil {
		_ = c.store.Delete(ctx, key)
		return listEnvelope{}, false
	}
	return env, true
}

func (c *AppointmentCache) put(ctx context.Context, key string, a model.Appointment) {
	bs, err := json.Marshal(a)
	if err != nil {
		log.Printf("cache: marshal %s failed: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, bs, c.ttl); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

func (c *AppointmentCache) putList(ctx context.Context, key string, items []model.Appointment) {
	if items == nil {
		items = []model.Appointment{}
	}
	bs, err := json.Marshal(listEnvelope{Items: items})
	if err != nil {
		log.Printf("cache: marshal %s failed: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, bs, c.ttl); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}
