//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package transport

func osVersion() string {
	return "unknown"
}
