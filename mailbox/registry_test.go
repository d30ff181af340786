package mailbox

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/meshclient/types"
)

func TestRegistry_Lookup(t *testing.T) {
	reg, err := NewRegistry(
		Identity{ID: "X26ABC1", Password: "pw1", SharedKey: "key"},
		Identity{ID: "X26ABC2", Password: "pw2", SharedKey: "key"},
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	id, err := reg.Lookup("X26ABC2")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if id.Password != "pw2" {
		t.Errorf("expected pw2, got %q", id.Password)
	}

	if reg.Len() != 2 {
		t.Errorf("expected 2 mailboxes, got %d", reg.Len())
	}
	if ids := reg.IDs(); ids[0] != "X26ABC1" || ids[1] != "X26ABC2" {
		t.Errorf("expected sorted ids, got %v", ids)
	}
	if !reg.Contains("X26ABC1") || reg.Contains("X26ZZZ9") {
		t.Error("Contains returned unexpected result")
	}
}

func TestRegistry_LookupErrors(t *testing.T) {
	reg, _ := NewRegistry(Identity{ID: "X26ABC1", Password: "pw", SharedKey: "key"})

	for _, id := range []string{"", "X26ZZZ9"} {
		if _, err := reg.Lookup(id); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("Lookup(%q): expected ErrInvalidArgument, got %v", id, err)
		}
	}
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		identities []Identity
	}{
		{name: "empty id", identities: []Identity{{Password: "pw"}}},
		{name: "duplicate", identities: []Identity{{ID: "A"}, {ID: "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.identities...); !errors.Is(err, types.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRegistry_ConcurrentLookup(t *testing.T) {
	reg, _ := NewRegistry(Identity{ID: "X26ABC1", Password: "pw", SharedKey: "key"})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := reg.Lookup("X26ABC1"); err != nil {
					t.Errorf("Lookup failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func writeTestKeyPair(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "X26ABC1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestLoadCertificate(t *testing.T) {
	certFile, keyFile := writeTestKeyPair(t)

	cert, err := LoadCertificate(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadCertificate failed: %v", err)
	}
	if cert == nil || len(cert.Certificate) != 1 {
		t.Fatalf("expected one certificate in chain, got %+v", cert)
	}
}

func TestLoadCertificate_Optional(t *testing.T) {
	cert, err := LoadCertificate("", "")
	if err != nil || cert != nil {
		t.Errorf("expected nil, nil for empty paths, got %v, %v", cert, err)
	}
}

func TestLoadCertificate_Errors(t *testing.T) {
	certFile, _ := writeTestKeyPair(t)

	if _, err := LoadCertificate(certFile, ""); err == nil {
		t.Error("expected error when key file is missing")
	}
	if _, err := LoadCertificate(certFile, filepath.Join(t.TempDir(), "absent.key")); err == nil {
		t.Error("expected error for unreadable key file")
	}
}
