package mailbox

import (
	"crypto/tls"
	"fmt"
)

// LoadCertificate reads a PEM certificate and private key pair.
// Returns nil, nil when both paths are empty.
func LoadCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	if certFile == "" && keyFile == "" {
		return nil, nil
	}
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("client certificate requires both cert_file and key_file")
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate %s: %w", certFile, err)
	}
	return &cert, nil
}
