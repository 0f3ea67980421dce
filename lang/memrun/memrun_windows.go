//go:build windows

package memrun

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocRW reserves and commits a read-write region.
func allocRW(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// protectRX switches region to read-execute once the machine code has been
// copied in, so the page is never writable and executable at the same time.
func protectRX(region []byte) error {
	var old uint32
	return windows.VirtualProtect(uintptr(unsafe.Pointer(&region[0])), uintptr(len(region)), windows.PAGE_EXECUTE_READ, &old)
}

// protectNone carves out the data-stack guard page.
func protectNone(region []byte) error {
	var old uint32
	return windows.VirtualProtect(uintptr(unsafe.Pointer(&region[0])), uintptr(len(region)), windows.PAGE_NOACCESS, &old)
}

// release frees the region reserved by allocRW.
func release(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	return windows.VirtualFree(uintptr(unsafe.Pointer(&region[0])), 0, windows.MEM_RELEASE)
}
