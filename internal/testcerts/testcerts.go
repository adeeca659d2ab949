// Package testcerts generates a throwaway CA with server and client
// certificates for exercising the mTLS control API in tests.
package testcerts

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Set holds the paths of a generated certificate set.
type Set struct {
	CACert string

	ServerCert string
	ServerKey  string

	OperatorCert string
	OperatorKey  string

	ViewerCert string
	ViewerKey  string

	// Untrusted is signed by a different CA.
	UntrustedCert string
	UntrustedKey  string
}

type issuer struct {
	cert *x509.Certificate
	key  crypto.Signer
}

// Generate writes a full certificate set into dir.
func Generate(dir string) (*Set, error) {
	ca, err := newCA("tsh test CA", filepath.Join(dir, "ca.crt"))
	if err != nil {
		return nil, err
	}

	rogue, err := newCA("rogue CA", filepath.Join(dir, "rogue-ca.crt"))
	if err != nil {
		return nil, err
	}

	set := &Set{
		CACert:        filepath.Join(dir, "ca.crt"),
		ServerCert:    filepath.Join(dir, "server.crt"),
		ServerKey:     filepath.Join(dir, "server.key"),
		OperatorCert:  filepath.Join(dir, "client-operator.crt"),
		OperatorKey:   filepath.Join(dir, "client-operator.key"),
		ViewerCert:    filepath.Join(dir, "client-viewer.crt"),
		ViewerKey:     filepath.Join(dir, "client-viewer.key"),
		UntrustedCert: filepath.Join(dir, "client-untrusted.crt"),
		UntrustedKey:  filepath.Join(dir, "client-untrusted.key"),
	}

	leaves := []struct {
		issuer   *issuer
		template *x509.Certificate
		certPath string
		keyPath  string
	}{
		{ca, serverTemplate(), set.ServerCert, set.ServerKey},
		{ca, clientTemplate("alice", "operator"), set.OperatorCert, set.OperatorKey},
		{ca, clientTemplate("bob", "viewer"), set.ViewerCert, set.ViewerKey},
		{rogue, clientTemplate("mallory", "operator"), set.UntrustedCert, set.UntrustedKey},
	}

	for _, l := range leaves {
		if err := l.issuer.sign(l.template, l.certPath, l.keyPath); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// New generates a certificate set in a temporary directory that is removed
// when the test finishes.
func New(tb testing.TB) *Set {
	tb.Helper()

	set, err := Generate(tb.TempDir())
	if err != nil {
		tb.Fatalf("generate certificates: %v", err)
	}

	return set
}

func newCA(cn, certPath string) (*issuer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate CA key: %w", err)
	}

	template := baseTemplate(cn)
	template.IsCA = true
	template.BasicConstraintsValid = true
	template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse CA certificate: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", der); err != nil {
		return nil, err
	}

	return &issuer{cert: cert, key: key}, nil
}

func (i *issuer) sign(template *x509.Certificate, certPath, keyPath string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	der, err := x509.CreateCertificate(rand.Reader, template, i.cert, key.Public(), i.key)
	if err != nil {
		return fmt.Errorf("create certificate %s: %w", template.Subject.CommonName, err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", der); err != nil {
		return err
	}

	return writePEM(keyPath, "PRIVATE KEY", keyDER)
}

func baseTemplate(cn string) *x509.Certificate {
	serial, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))

	return &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
}

func serverTemplate() *x509.Certificate {
	t := baseTemplate("localhost")
	t.DNSNames = []string{"localhost"}
	t.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	t.KeyUsage = x509.KeyUsageDigitalSignature
	t.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

	return t
}

func clientTemplate(cn, role string) *x509.Certificate {
	t := baseTemplate(cn)
	t.Subject.OrganizationalUnit = []string{role}
	t.KeyUsage = x509.KeyUsageDigitalSignature
	t.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}

	return t
}

func writePEM(path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
