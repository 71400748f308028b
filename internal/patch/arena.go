package patch

// arena hands out executable memory for trampolines. Chunks are mapped one
// page at a time and never released.
type arena struct {
	next, end uintptr
}

func (a *arena) alloc(size int) (uintptr, error) {
	n := (uintptr(size) + 15) &^ 15
	if a.next == 0 || a.next+n > a.end {
		chunk := pageSize
		for chunk < n {
			chunk += pageSize
		}
		base, err := mapExec(chunk)
		if err != nil {
			return 0, err
		}
		a.next, a.end = base, base+chunk
	}
	p := a.next
	a.next += n
	return p, nil
}
