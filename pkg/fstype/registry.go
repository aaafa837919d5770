// Package fstype manages the set of filesystem drivers available to the
// mount configuration subsystem, and tracks the live instances those
// drivers have produced.
package fstype

import (
	"sync"
	"time"

	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
)

// Registry provides thread-safe registration and lookup of filesystem
// drivers, plus tracking of the superblocks built through them.
//
// Instance tracking is ephemeral and kept in-memory only: it exists so a
// reconfiguration request can resolve a source name back to the live
// superblock it targets, and so observability surfaces can enumerate what
// is mounted.
//
// Example usage:
//
//	reg := fstype.NewRegistry()
//	reg.Register(memfs.New())
//
//	fs, _ := reg.Lookup("memfs")
//	fc, _ := fscontext.New(fs, fscontext.PurposeNewMount, fscontext.Options{})
type Registry struct {
	mu        sync.RWMutex
	types     map[string]fscontext.FilesystemType
	instances map[string]*Instance // key: source name
}

// Instance records one live superblock and how it came to exist.
type Instance struct {
	Source    string               // data source the instance was created with
	FSType    string               // driver name
	Root      fscontext.SuperBlock // the live superblock
	MountedAt time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:     make(map[string]fscontext.FilesystemType),
		instances: make(map[string]*Instance),
	}
}

// Register adds a filesystem driver to the registry.
// Returns an error if a driver with the same name already exists.
func (r *Registry) Register(fs fscontext.FilesystemType) error {
	if fs == nil {
		return fserrors.NewInvalidArgument("cannot register nil filesystem type")
	}
	name := fs.Name()
	if name == "" {
		return fserrors.NewInvalidArgument("cannot register filesystem type with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		return fserrors.Newf(fserrors.ErrAlreadyExists, "filesystem type %q already registered", name)
	}

	r.types[name] = fs
	return nil
}

// Unregister removes a filesystem driver by name. Live instances are not
// affected; their superblocks keep referencing the driver directly.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return fserrors.NewNotFound(name)
	}
	delete(r.types, name)
	return nil
}

// Lookup retrieves a filesystem driver by name.
// Returns a NotFound error if no driver with that name is registered.
func (r *Registry) Lookup(name string) (fscontext.FilesystemType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fs, exists := r.types[name]
	if !exists {
		return nil, fserrors.NewNotFound(name)
	}
	return fs, nil
}

// Exists checks whether a driver with the given name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.types[name]
	return exists
}

// Names returns all registered driver names.
// The returned slice is a copy and safe to modify.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered drivers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// ============================================================================
// Instance Tracking
// ============================================================================

// RecordInstance registers a live superblock under its source name.
// Returns an error if an instance with the same source already exists.
func (r *Registry) RecordInstance(source string, root fscontext.SuperBlock) error {
	if source == "" {
		return fserrors.NewInvalidArgument("cannot record instance with empty source")
	}
	if root == nil {
		return fserrors.NewInvalidArgument("cannot record nil instance")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[source]; exists {
		return fserrors.Newf(fserrors.ErrAlreadyExists, "instance %q already recorded", source)
	}

	r.instances[source] = &Instance{
		Source:    source,
		FSType:    root.Type().Name(),
		Root:      root,
		MountedAt: time.Now(),
	}
	return nil
}

// LookupInstance resolves a source name to the live superblock it names.
// Returns a NotFound error if no instance is recorded under that source.
func (r *Registry) LookupInstance(source string) (fscontext.SuperBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, exists := r.instances[source]
	if !exists {
		return nil, fserrors.NewNotFound(source)
	}
	return inst.Root, nil
}

// RemoveInstance drops the record for a source name.
// Returns true if an instance was removed, false if none existed.
func (r *Registry) RemoveInstance(source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[source]; exists {
		delete(r.instances, source)
		return true
	}
	return false
}

// ListInstances returns all recorded instances.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListInstances() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, &Instance{
			Source:    inst.Source,
			FSType:    inst.FSType,
			Root:      inst.Root,
			MountedAt: inst.MountedAt,
		})
	}
	return instances
}

// CountInstances returns the number of recorded instances.
func (r *Registry) CountInstances() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
