package transport

import "runtime"

// OSInfo identifies the client platform to the remote service.
type OSInfo struct {
	Name         string
	Version      string
	Architecture string
}

// DetectOS reports the running platform.
func DetectOS() OSInfo {
	return OSInfo{
		Name:         runtime.GOOS,
		Version:      osVersion(),
		Architecture: architecture(runtime.GOARCH),
	}
}

// architecture maps GOARCH onto the names the service expects.
func architecture(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86_32"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}
