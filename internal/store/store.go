// Package store is the in-memory mirror of the room's entities. It is a plain
// keyed store: every write replaces a whole record and nothing is validated
// here. Reads hand out copies.
package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/semanticallynull/spinroom/attendance"
	"github.com/semanticallynull/spinroom/bike"
	"github.com/semanticallynull/spinroom/class"
	"github.com/semanticallynull/spinroom/profile"
)

type Cache struct {
	mu        sync.RWMutex
	bikes     map[int]bike.Bike
	attendees map[string][]attendance.Record
	profiles  map[string]profile.Profile
	classes   []class.Class
}

func New() *Cache {
	return &Cache{
		bikes:     make(map[int]bike.Bike),
		attendees: make(map[string][]attendance.Record),
		profiles:  make(map[string]profile.Profile),
	}
}

func (c *Cache) Bike(id int) (bike.Bike, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bikes[id]
	return copyBike(b), ok
}

// Bikes returns every bike ordered by number.
func (c *Cache) Bikes() []bike.Bike {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(c.bikes))
	out := make([]bike.Bike, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyBike(c.bikes[id]))
	}
	return out
}

func (c *Cache) UpsertBike(b bike.Bike) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bikes[b.ID] = copyBike(b)
}

func (c *Cache) ReplaceBikes(bikes []bike.Bike) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bikes = make(map[int]bike.Bike, len(bikes))
	for _, b := range bikes {
		c.bikes[b.ID] = copyBike(b)
	}
}

// HasClass reports whether a roster has been loaded for key.
func (c *Cache) HasClass(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.attendees[key]
	return ok
}

func (c *Cache) Attendees(classKey string) []attendance.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.attendees[classKey])
}

// UpsertAttendee replaces the record with the same id, or the same user name
// when the id is new, keeping the roster's order. New riders are appended.
func (c *Cache) UpsertAttendee(classKey string, rec attendance.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.attendees[classKey]
	for i, r := range list {
		if r.ID == rec.ID || r.UserName == rec.UserName {
			list[i] = rec
			return
		}
	}
	c.attendees[classKey] = append(list, rec)
}

// ReplaceAttendeeID swaps a record's id in place, used when the backend
// assigns the canonical id for a locally created record.
func (c *Cache) ReplaceAttendeeID(classKey, oldID, newID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.attendees[classKey] {
		if r.ID == oldID {
			c.attendees[classKey][i].ID = newID
			return
		}
	}
}

func (c *Cache) ReplaceAttendees(classKey string, recs []attendance.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attendees[classKey] = slices.Clone(recs)
}

// AllAttendees returns every loaded roster keyed by class.
func (c *Cache) AllAttendees() map[string][]attendance.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]attendance.Record, len(c.attendees))
	for k, v := range c.attendees {
		out[k] = slices.Clone(v)
	}
	return out
}

func (c *Cache) Profile(id string) (profile.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

func (c *Cache) Profiles() []profile.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]profile.Profile, 0, len(c.profiles))
	for _, id := range slices.Sorted(maps.Keys(c.profiles)) {
		out = append(out, c.profiles[id])
	}
	return out
}

func (c *Cache) UpsertProfile(p profile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.ID] = p
}

func (c *Cache) ReplaceProfiles(ps []profile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = make(map[string]profile.Profile, len(ps))
	for _, p := range ps {
		c.profiles[p.ID] = p
	}
}

func (c *Cache) Classes() []class.Class {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.classes)
}

func (c *Cache) Class(key string) (class.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cl := range c.classes {
		if cl.ID == key {
			return cl, true
		}
	}
	return class.Class{}, false
}

func (c *Cache) ReplaceClasses(classes []class.Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = slices.Clone(classes)
}

// copyBike detaches the pointer fields so cached bikes never share memory
// with callers.
func copyBike(b bike.Bike) bike.Bike {
	if b.OccupiedBy != nil {
		v := *b.OccupiedBy
		b.OccupiedBy = &v
	}
	if b.CreditsRemaining != nil {
		v := *b.CreditsRemaining
		b.CreditsRemaining = &v
	}
	if b.AssignedClass != nil {
		v := *b.AssignedClass
		b.AssignedClass = &v
	}
	if b.UpdatedBy != nil {
		v := *b.UpdatedBy
		b.UpdatedBy = &v
	}
	return b
}
