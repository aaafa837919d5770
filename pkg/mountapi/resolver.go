package mountapi

import (
	"context"

	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
)

// InstanceLookup resolves a source name to the live superblock created
// with it. *fstype.Registry satisfies this.
type InstanceLookup interface {
	LookupInstance(source string) (fscontext.SuperBlock, error)
}

// RegistryResolver backs FSPick with an instance table: the pick path is
// the source name the target instance was created with.
type RegistryResolver struct {
	instances InstanceLookup
}

// NewRegistryResolver creates a resolver over the given instance table.
func NewRegistryResolver(instances InstanceLookup) *RegistryResolver {
	return &RegistryResolver{instances: instances}
}

// Resolve implements PathResolver. Instance sources are flat identifiers,
// not hierarchical paths, which fixes the traversal semantics:
//
//   - dirfd: only AnchorCWD is meaningful; a descriptor anchor would name
//     a location inside an instance, which the table cannot represent.
//   - FSPickEmptyPath: targets the anchor itself, and the anchor is never
//     an instance.
//   - FSPickSymlinkNoFollow, FSPickNoAutomount: no-ops, the table holds
//     no links or automount points.
func (r *RegistryResolver) Resolve(ctx context.Context, dirfd int, path string, flags PickFlags) (fscontext.SuperBlock, error) {
	if dirfd != AnchorCWD {
		return nil, fserrors.NewNotSupported("instance sources do not support descriptor-relative resolution")
	}
	if path == "" {
		return nil, fserrors.NewNotFound("empty path")
	}
	return r.instances.LookupInstance(path)
}
