//go:build windows

package shmem

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapping is a pagefile-backed named file mapping. Windows reference-counts
// the mapping object itself, so unlink is a no-op: the object disappears
// with its last handle.
type mapping struct {
	data   []byte
	handle windows.Handle
	addr   uintptr
}

func sanitizeName(name string) string {
	// backslashes would introduce object namespace separators
	return strings.ReplaceAll(name, `\`, "_")
}

func mapNamed(name string, size int) (m *mapping, created bool, err error) {
	objName, err := windows.UTF16PtrFromString(`Local\masterme-` + sanitizeName(name))
	if err != nil {
		return nil, false, fmt.Errorf("encoding shared region name: %w", err)
	}

	handle, err := windows.CreateFileMapping(windows.InvalidHandle, nil,
		windows.PAGE_READWRITE, 0, uint32(size), objName)
	switch {
	case err == nil:
		created = true
	case err == windows.ERROR_ALREADY_EXISTS && handle != 0:
		created = false
	default:
		return nil, false, fmt.Errorf("creating file mapping: %w", err)
	}

	addr, err := windows.MapViewOfFile(handle,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(handle)
		return nil, false, fmt.Errorf("mapping view of shared region: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &mapping{data: data, handle: handle, addr: addr}, created, nil
}

func (m *mapping) unmap() error {
	if m.data == nil {
		return nil
	}
	m.data = nil
	err := windows.UnmapViewOfFile(m.addr)
	if cerr := windows.CloseHandle(m.handle); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (m *mapping) unlink() error {
	// named mappings are destroyed with their last handle
	return nil
}
