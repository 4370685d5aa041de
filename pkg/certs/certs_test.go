package certs

import (
	"crypto/tls"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	auth, err := GenerateAuthority("lanlobby-test")
	require.NoError(t, err)
	return auth
}

func TestGenerateAuthority(t *testing.T) {
	auth := newTestAuthority(t)

	require.NotNil(t, auth.cert)
	assert.True(t, auth.cert.IsCA)
	assert.NotEmpty(t, auth.CertPEM)
	assert.True(t, auth.cert.NotAfter.After(time.Now().Add(24*time.Hour)))
}

func TestEnsureAuthorityRoundTrip(t *testing.T) {
	dir := t.TempDir()

	first, err := EnsureAuthority(dir, "lanlobby-test")
	require.NoError(t, err)

	// A second call must load the same authority, not regenerate it.
	second, err := EnsureAuthority(dir, "lanlobby-test")
	require.NoError(t, err)
	assert.Equal(t, first.cert.SerialNumber, second.cert.SerialNumber)
	assert.Equal(t, first.CertPEM, second.CertPEM)
}

func TestGetCertificateFor(t *testing.T) {
	cache := NewCache(newTestAuthority(t), "lanlobby-test")

	cert, err := cache.GetCertificateFor("a.example.com")
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, "a.example.com", cert.Leaf.Subject.CommonName)
	assert.NoError(t, cert.Leaf.VerifyHostname("a.example.com"))
	assert.Error(t, cert.Leaf.VerifyHostname("b.example.com"))

	// Chain verifies against the authority.
	pool := x509.NewCertPool()
	ok := pool.AppendCertsFromPEM(cache.authority.CertPEM)
	require.True(t, ok)
	_, err = cert.Leaf.Verify(x509.VerifyOptions{Roots: pool, DNSName: "a.example.com"})
	assert.NoError(t, err)
}

func TestGetCertificateForDistinctHostnames(t *testing.T) {
	cache := NewCache(newTestAuthority(t), "lanlobby-test")

	a, err := cache.GetCertificateFor("a.example.com")
	require.NoError(t, err)
	b, err := cache.GetCertificateFor("b.example.com")
	require.NoError(t, err)

	assert.NotEqual(t, a.Leaf.Raw, b.Leaf.Raw)
	assert.EqualValues(t, 2, cache.Issued())
}

func TestGetCertificateForConcurrent(t *testing.T) {
	cache := NewCache(newTestAuthority(t), "lanlobby-test")

	const callers = 100
	results := make([]*tls.Certificate, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			cert, err := cache.GetCertificateFor("a.example.com")
			assert.NoError(t, err)
			results[i] = cert
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for i := 1; i < callers; i++ {
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].Leaf.Raw, results[i].Leaf.Raw)
	}
	assert.EqualValues(t, 1, cache.Issued())
}

func TestExpiredLeafRegenerated(t *testing.T) {
	cache := NewCache(newTestAuthority(t), "lanlobby-test", WithLeafValidity(time.Millisecond))

	first, err := cache.GetCertificateFor("a.example.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := cache.GetCertificateFor("a.example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Leaf.Raw, second.Leaf.Raw)
	assert.EqualValues(t, 2, cache.Issued())
}

func TestGetCertificateSNIFallback(t *testing.T) {
	cache := NewCache(newTestAuthority(t), "lanlobby-test",
		WithDefaultHostname("fallback.example.com"))

	cert, err := cache.GetCertificate(&tls.ClientHelloInfo{ServerName: ""})
	require.NoError(t, err)
	assert.Equal(t, "fallback.example.com", cert.Leaf.Subject.CommonName)
}
