//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package patch

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

var pageSize = uintptr(unix.Getpagesize())

// pageProt is unused here: code pages always go back to read and execute.
type pageProt uint32

func reProtectPages(addr, size uintptr, _ pageProt) error {
	return mprotect(addr, size, unix.PROT_EXEC|unix.PROT_READ)
}

func protectPages(addr, size uintptr) (pageProt, error) {
	return 0, mprotect(addr, size, unix.PROT_EXEC|unix.PROT_READ|unix.PROT_WRITE)
}

func mprotect(addr, size uintptr, prot int) error {
	start := pageSize * (addr / pageSize)
	length := pageSize * ((addr + size + pageSize - 1 - start) / pageSize)
	for i := uintptr(0); i < length; i += pageSize {
		data := makeSlice(start+i, pageSize)
		err := unix.Mprotect(data, prot)
		if err != nil {
			return err
		}
	}
	return nil
}

func mapExec(size uintptr) (uintptr, error) {
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&mem[0])), nil
}
