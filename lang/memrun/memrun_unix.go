//go:build !windows

package memrun

import "golang.org/x/sys/unix"

// allocRW maps a private, anonymous read-write region of size bytes.
func allocRW(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

// protectRX flips region from read-write to read-execute once the machine
// code has been copied in, so the region is never simultaneously writable
// and executable.
func protectRX(region []byte) error {
	return unix.Mprotect(region, unix.PROT_READ|unix.PROT_EXEC)
}

// protectNone revokes all access to region, carving out the guard page
// past the end of the data stack.
func protectNone(region []byte) error {
	return unix.Mprotect(region, unix.PROT_NONE)
}

func release(region []byte) error {
	return unix.Munmap(region)
}
