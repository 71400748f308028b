//go:build !amd64

package patch

const supported = false
