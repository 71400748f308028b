//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package patch

var pageSize uintptr = 4096

type pageProt uint32

func protectPages(addr, size uintptr) (pageProt, error) { return 0, ErrUnsupported }

func reProtectPages(addr, size uintptr, old pageProt) error { return ErrUnsupported }

func mapExec(size uintptr) (uintptr, error) { return 0, ErrUnsupported }
