package patch

import (
	"golang.org/x/sys/windows"
)

var pageSize = uintptr(windows.Getpagesize())

// pageProt is the protection a range had before protectPages.
type pageProt uint32

func protectPages(addr, size uintptr) (pageProt, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return 0, err
	}
	return pageProt(old), nil
}

func reProtectPages(addr, size uintptr, old pageProt) error {
	var prev uint32
	return windows.VirtualProtect(addr, size, uint32(old), &prev)
}

func mapExec(size uintptr) (uintptr, error) {
	return windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
}
