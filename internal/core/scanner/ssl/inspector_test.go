package ssl

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCert struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	der  []byte
}

var serial int64

// issue 生成证书，parent 为空时自签
func issue(t *testing.T, cn string, notBefore, notAfter time.Time, isCA bool, parent *testCert) *testCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial++
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"NeoScan Test"}},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if !isCA || parent == nil {
		tmpl.DNSNames = []string{"localhost"}
		tmpl.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
	}

	signer, signerKey := tmpl, key
	if parent != nil {
		signer, signerKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, signer, &key.PublicKey, signerKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &testCert{cert: cert, key: key, der: der}
}

// serveTLS 启动只做握手的 TLS 服务
func serveTLS(t *testing.T, leaf *testCert, chain ...*testCert) int {
	t.Helper()
	certs := [][]byte{leaf.der}
	for _, c := range chain {
		certs = append(certs, c.der)
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{{Certificate: certs, PrivateKey: leaf.key}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				c.(*tls.Conn).Handshake()
				c.SetReadDeadline(time.Now().Add(time.Second))
				c.Read(make([]byte, 1))
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeCA(t *testing.T, ca *testCert) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.der}), 0644))
	return path
}

func TestInspect_ExpiredSelfSigned(t *testing.T) {
	now := time.Now()
	leaf := issue(t, "localhost", now.Add(-60*24*time.Hour), now.Add(-10*24*time.Hour), true, nil)
	port := serveTLS(t, leaf)

	in, err := NewInspector(Options{HandshakeTimeout: 2 * time.Second})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "localhost", "127.0.0.1", port)

	assert.True(t, f.HandshakeOK)
	assert.NotEmpty(t, f.Version)
	assert.True(t, f.Expired)
	assert.True(t, f.SelfSigned)
	assert.False(t, f.ChainValid)
	assert.True(t, f.HostnameValid)
	assert.False(t, f.CertificateValid)
	assert.Contains(t, f.Errors, "certificate expired 10 days ago")
	assert.Contains(t, f.Errors, "self-signed certificate")
	require.Len(t, f.Chain, 1)
}

func TestInspect_TrustedChain(t *testing.T) {
	now := time.Now()
	ca := issue(t, "NeoScan Test CA", now.Add(-time.Hour), now.Add(365*24*time.Hour), true, nil)
	leaf := issue(t, "localhost", now.Add(-time.Hour), now.Add(90*24*time.Hour), false, ca)
	port := serveTLS(t, leaf, ca)

	in, err := NewInspector(Options{CAFile: writeCA(t, ca)})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "localhost", "127.0.0.1", port)

	assert.True(t, f.ChainValid)
	assert.False(t, f.SelfSigned)
	assert.False(t, f.ExpiringSoon)
	assert.True(t, f.CertificateValid)
	assert.Empty(t, f.Errors)
	assert.Len(t, f.Chain, 2)
	assert.GreaterOrEqual(t, f.DaysRemaining, 89)
}

func TestInspect_HostnameMismatch(t *testing.T) {
	now := time.Now()
	ca := issue(t, "NeoScan Test CA", now.Add(-time.Hour), now.Add(365*24*time.Hour), true, nil)
	leaf := issue(t, "localhost", now.Add(-time.Hour), now.Add(90*24*time.Hour), false, ca)
	port := serveTLS(t, leaf, ca)

	in, err := NewInspector(Options{CAFile: writeCA(t, ca)})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "scanner.example.com", "127.0.0.1", port)

	assert.True(t, f.ChainValid)
	assert.False(t, f.HostnameValid)
	assert.False(t, f.CertificateValid)
	require.NotEmpty(t, f.Errors)
	assert.True(t, strings.HasPrefix(f.Errors[0], "hostname mismatch: "))
}

func TestInspect_ExpiringSoonIsWarningOnly(t *testing.T) {
	now := time.Now()
	ca := issue(t, "NeoScan Test CA", now.Add(-time.Hour), now.Add(365*24*time.Hour), true, nil)
	leaf := issue(t, "localhost", now.Add(-time.Hour), now.Add(5*24*time.Hour), false, ca)
	port := serveTLS(t, leaf, ca)

	in, err := NewInspector(Options{CAFile: writeCA(t, ca), ExpiryWarningDays: 30})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "", "127.0.0.1", port)

	assert.True(t, f.ExpiringSoon)
	assert.True(t, f.CertificateValid)
	require.Len(t, f.Errors, 1)
	assert.True(t, strings.HasPrefix(f.Errors[0], "certificate expires in "))
}

func TestInspect_NotYetValid(t *testing.T) {
	now := time.Now()
	leaf := issue(t, "localhost", now.Add(12*24*time.Hour+time.Hour), now.Add(400*24*time.Hour), true, nil)
	port := serveTLS(t, leaf)

	in, err := NewInspector(Options{})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "localhost", "127.0.0.1", port)

	assert.True(t, f.NotYetValid)
	assert.False(t, f.CertificateValid)
	assert.Contains(t, f.Errors, "certificate not valid for 12 more days")
}

func TestInspect_HandshakeFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Write([]byte("SSH-2.0-OpenSSH_8.9\r\n"))
			c.Close()
		}
	}()

	in, err := NewInspector(Options{HandshakeTimeout: time.Second})
	require.NoError(t, err)
	f := in.Inspect(context.Background(), "", "127.0.0.1", ln.Addr().(*net.TCPAddr).Port)

	assert.False(t, f.HandshakeOK)
	assert.False(t, f.CertificateValid)
	require.Len(t, f.Errors, 1)
	assert.Contains(t, f.Errors[0], "tls handshake with 127.0.0.1:")
}

func TestNewInspector_BadCAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0644))
	_, err := NewInspector(Options{CAFile: path})
	assert.Error(t, err)
}
