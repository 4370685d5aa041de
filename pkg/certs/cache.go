package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// defaultLeafValidity covers normal emulator run durations with a wide
// margin; expired leaves are regenerated on next use.
const defaultLeafValidity = 30 * 24 * time.Hour

// Cache issues and caches one leaf certificate per intercepted
// hostname, signed by the local authority. Issuance for the same
// hostname is coalesced: concurrent first contact from multiple
// connections triggers exactly one signing operation.
type Cache struct {
	authority    *Authority
	organization string
	validFor     time.Duration
	defaultHost  string

	mu    sync.RWMutex
	certs map[string]*tls.Certificate

	group  singleflight.Group
	issued atomic.Int64
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithLeafValidity overrides the leaf certificate validity window.
func WithLeafValidity(d time.Duration) CacheOption {
	return func(c *Cache) { c.validFor = d }
}

// WithDefaultHostname sets the hostname used when a TLS client sends no
// SNI extension.
func WithDefaultHostname(hostname string) CacheOption {
	return func(c *Cache) { c.defaultHost = hostname }
}

// NewCache creates a leaf certificate cache backed by the given
// authority.
func NewCache(authority *Authority, organization string, opts ...CacheOption) *Cache {
	c := &Cache{
		authority:    authority,
		organization: organization,
		validFor:     defaultLeafValidity,
		defaultHost:  "localhost",
		certs:        make(map[string]*tls.Certificate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCertificateFor returns the cached leaf certificate for hostname,
// issuing one on first use. Safe for concurrent use; concurrent callers
// for the same hostname coalesce onto a single issuance. An expired or
// hostname-mismatched cached certificate is regenerated.
func (c *Cache) GetCertificateFor(hostname string) (*tls.Certificate, error) {
	if hostname == "" {
		hostname = c.defaultHost
	}

	c.mu.RLock()
	cert, ok := c.certs[hostname]
	c.mu.RUnlock()
	if ok && c.usable(cert, hostname) {
		return cert, nil
	}

	v, err, _ := c.group.Do(hostname, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// already stored a fresh certificate.
		c.mu.RLock()
		cached, ok := c.certs[hostname]
		c.mu.RUnlock()
		if ok && c.usable(cached, hostname) {
			return cached, nil
		}

		issued, err := c.issue(hostname)
		if err != nil {
			return nil, fmt.Errorf("certificate issuance for %s: %w", hostname, err)
		}

		c.mu.Lock()
		c.certs[hostname] = issued
		c.mu.Unlock()
		return issued, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tls.Certificate), nil
}

// GetCertificate implements the tls.Config.GetCertificate callback,
// selecting the leaf matching the Server-Name-Indication hostname and
// falling back to the default hostname when SNI is absent.
func (c *Cache) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return c.GetCertificateFor(hello.ServerName)
}

// Issued reports how many signing operations the cache has performed.
func (c *Cache) Issued() int64 {
	return c.issued.Load()
}

// Hostnames returns the hostnames with a cached certificate.
func (c *Cache) Hostnames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.certs))
	for name := range c.certs {
		names = append(names, name)
	}
	return names
}

func (c *Cache) usable(cert *tls.Certificate, hostname string) bool {
	if cert.Leaf == nil {
		return false
	}
	if time.Now().After(cert.Leaf.NotAfter) {
		return false
	}
	return cert.Leaf.VerifyHostname(hostname) == nil
}

func (c *Cache) issue(hostname string) (*tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate leaf key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{c.organization},
			CommonName:   hostname,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(c.validFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{hostname},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, c.authority.cert, &key.PublicKey, c.authority.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign leaf certificate: %w", err)
	}
	c.issued.Add(1)

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse leaf certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{der, c.authority.cert.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}
