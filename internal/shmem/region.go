package shmem

import (
	"unsafe"

	"github.com/Navezjt/master-me/internal/errors"
)

// Region is a handle to a mapped shared memory region. The zero value is
// unbound; obtain a bound Region through CreateOrConnect.
//
// Lifecycle: the audio process creates the region (or attaches to one the
// consumer created first under the same name) and is the only party that
// may destroy it with Close. The consumer attaches, reads, sets the closed
// flag and Detaches. The region is never destroyed implicitly by a
// vanishing consumer, which keeps the audio process crash-proof against
// it.
type Region struct {
	name    string
	created bool
	m       *mapping
	layout  *RegionLayout
}

// CreateOrConnect maps the shared memory object identified by name,
// creating it zero-initialized and sized exactly to RegionSize when it
// does not exist yet. Attaching to an existing region preserves its
// in-flight cursor positions. Mapping failures are recoverable: callers
// are expected to skip telemetry, not to crash the audio path.
func CreateOrConnect(name string) (*Region, error) {
	if name == "" {
		return nil, errors.Newf("shared region name must not be empty").
			Component("shmem").
			Category(errors.CategoryValidation).
			Build()
	}

	m, created, err := mapNamed(name, RegionSize)
	if err != nil {
		return nil, errors.New(err).
			Component("shmem").
			Category(errors.CategorySharedMemory).
			Context("region", name).
			Build()
	}

	layout := (*RegionLayout)(unsafe.Pointer(unsafe.SliceData(m.data)))
	if !layout.magic.CompareAndSwap(0, regionMagic) && layout.magic.Load() != regionMagic {
		_ = m.unmap()
		if created {
			_ = m.unlink()
		}
		return nil, errors.Newf("shared region %q has an incompatible layout", name).
			Component("shmem").
			Category(errors.CategoryValidation).
			Context("region", name).
			Build()
	}

	return &Region{name: name, created: created, m: m, layout: layout}, nil
}

// Bound reports whether the region is currently mapped.
func (r *Region) Bound() bool {
	return r != nil && r.layout != nil
}

// Layout returns the mapped structure, or nil before binding or after
// Close/Detach. The pointer is a non-owning view over OS-managed memory
// and must not be used after the region is unmapped.
func (r *Region) Layout() *RegionLayout {
	if r == nil {
		return nil
	}
	return r.layout
}

// Name returns the name the region was bound under.
func (r *Region) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Created reports whether this process created the underlying OS object
// rather than attaching to an existing one.
func (r *Region) Created() bool {
	return r != nil && r.created
}

// Detach unmaps the region without destroying the OS object. Consumer
// side: a later CreateOrConnect under the same name reattaches to the
// same cursors. Safe to call redundantly.
func (r *Region) Detach() error {
	return r.release(false)
}

// Close unmaps the region and unlinks the OS object so the name can be
// reused for a fresh region. Audio-process side only. Safe to call
// redundantly; must be invoked before rebinding to a different name.
func (r *Region) Close() error {
	return r.release(true)
}

func (r *Region) release(unlink bool) error {
	if r == nil || r.layout == nil {
		return nil
	}
	r.layout = nil
	m := r.m
	r.m = nil

	err := m.unmap()
	if unlink {
		if uerr := m.unlink(); uerr != nil && err == nil {
			err = uerr
		}
	}
	if err != nil {
		return errors.New(err).
			Component("shmem").
			Category(errors.CategorySharedMemory).
			Context("region", r.name).
			Build()
	}
	return nil
}
