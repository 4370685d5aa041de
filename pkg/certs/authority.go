// Package certs implements the local certificate authority and the
// per-hostname leaf certificate cache used to terminate TLS for
// intercepted vendor hostnames.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

const (
	authorityCertFile = "ca.pem"
	authorityKeyFile  = "ca.key"

	// authorityValidity covers the expected lifetime of a local
	// install; the authority is regenerated when it expires.
	authorityValidity = 5 * 365 * 24 * time.Hour
)

// Authority is the local root used to sign every leaf certificate. A
// client that trusts it transparently trusts every intercepted
// hostname.
type Authority struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey

	// CertPEM is the PEM-encoded authority certificate, suitable for
	// installing into a trust store.
	CertPEM []byte
	keyPEM  []byte
}

// GenerateAuthority creates a fresh root authority key pair.
func GenerateAuthority(organization string) (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate authority key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   organization + " Local Authority",
		},
		NotBefore:             now,
		NotAfter:              now.Add(authorityValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create authority certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authority certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authority key: %w", err)
	}

	return &Authority{
		cert:    cert,
		key:     key,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// LoadAuthority reads an authority from dir.
func LoadAuthority(dir string) (*Authority, error) {
	certPEM, err := os.ReadFile(filepath.Join(dir, authorityCertFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read authority certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(filepath.Join(dir, authorityKeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read authority key: %w", err)
	}

	cert, err := decodeCertPEM(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := decodeKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}

	return &Authority{cert: cert, key: key, CertPEM: certPEM, keyPEM: keyPEM}, nil
}

// EnsureAuthority loads the authority from dir, generating and saving a
// new one when none exists or the stored one has expired.
func EnsureAuthority(dir, organization string) (*Authority, error) {
	auth, err := LoadAuthority(dir)
	if err == nil && time.Now().Before(auth.cert.NotAfter) {
		return auth, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	auth, err = GenerateAuthority(organization)
	if err != nil {
		return nil, err
	}
	if err := auth.save(dir); err != nil {
		return nil, err
	}
	return auth, nil
}

// CertPath returns the on-disk path of the authority certificate in dir.
func CertPath(dir string) string {
	return filepath.Join(dir, authorityCertFile)
}

func (a *Authority) save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create authority directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, authorityCertFile), a.CertPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write authority certificate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, authorityKeyFile), a.keyPEM, 0o600); err != nil {
		_ = os.Remove(filepath.Join(dir, authorityCertFile))
		return fmt.Errorf("failed to write authority key: %w", err)
	}
	return nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}

func decodeCertPEM(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("failed to decode certificate PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func decodeKeyPEM(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, errors.New("failed to decode key PEM block")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}
