//go:build unix

package shmem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// mapping is a file-backed shared mapping. The backing file lives under
// /dev/shm where available (equivalent to shm_open on Linux) and falls
// back to the system temp directory elsewhere.
type mapping struct {
	data []byte
	path string
}

func shmDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// sanitizeName keeps region names path-safe.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

func regionPath(name string) string {
	return filepath.Join(shmDir(), "masterme-"+sanitizeName(name))
}

func mapNamed(name string, size int) (m *mapping, created bool, err error) {
	path := regionPath(name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
	switch {
	case err == nil:
		created = true
		if err = unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(path)
			return nil, false, fmt.Errorf("sizing shared region file %s: %w", path, err)
		}
	case err == unix.EEXIST:
		fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, false, fmt.Errorf("opening shared region file %s: %w", path, err)
		}
		var st unix.Stat_t
		if err = unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, false, fmt.Errorf("inspecting shared region file %s: %w", path, err)
		}
		if st.Size < int64(size) {
			_ = unix.Close(fd)
			return nil, false, fmt.Errorf("shared region file %s is %d bytes, need %d", path, st.Size, size)
		}
	default:
		return nil, false, fmt.Errorf("creating shared region file %s: %w", path, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	// the mapping keeps the pages alive, the descriptor is no longer needed
	_ = unix.Close(fd)
	if err != nil {
		if created {
			_ = unix.Unlink(path)
		}
		return nil, false, fmt.Errorf("mapping shared region %s: %w", path, err)
	}

	return &mapping{data: data, path: path}, created, nil
}

func (m *mapping) unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}

func (m *mapping) unlink() error {
	err := unix.Unlink(m.path)
	if err == unix.ENOENT {
		// already gone, Close is idempotent
		return nil
	}
	return err
}
