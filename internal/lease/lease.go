// Package lease arbitrates write access to individual pwm outputs.
// Detection acquires an exclusive lease for the pwm it is currently
// driving; the engine checks the registry before writing and skips any
// leased output. Both sides share one Registry instance.
package lease

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

type Registry struct {
	owners cmap.ConcurrentMap[string, string]
}

func NewRegistry() *Registry {
	return &Registry{
		owners: cmap.New[string](),
	}
}

// Acquire takes the lease on the given pwm path for owner. Returns
// false if someone else currently holds it.
func (r *Registry) Acquire(pwmPath string, owner string) bool {
	if r.owners.SetIfAbsent(pwmPath, owner) {
		return true
	}
	current, _ := r.owners.Get(pwmPath)
	return current == owner
}

// Release frees the lease if it is held by owner.
func (r *Registry) Release(pwmPath string, owner string) {
	r.owners.RemoveCb(pwmPath, func(key string, current string, exists bool) bool {
		return exists && current == owner
	})
}

// ReleaseAll frees every lease held by owner.
func (r *Registry) ReleaseAll(owner string) {
	for entry := range r.owners.IterBuffered() {
		if entry.Val == owner {
			r.Release(entry.Key, owner)
		}
	}
}

// Held reports whether anybody holds a lease on the given pwm path.
func (r *Registry) Held(pwmPath string) bool {
	return r.owners.Has(pwmPath)
}

// HeldBy reports whether someone other than owner holds the lease.
func (r *Registry) HeldBy(pwmPath string, owner string) bool {
	current, ok := r.owners.Get(pwmPath)
	return ok && current != owner
}
