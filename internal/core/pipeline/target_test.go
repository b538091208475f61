package pipeline

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
)

func newTestResolver(t *testing.T, opts ResolverOptions) *Resolver {
	t.Helper()
	r, err := NewResolver(opts)
	require.NoError(t, err)
	return r
}

func TestResolveTarget_IPAndCIDR(t *testing.T) {
	r := newTestResolver(t, ResolverOptions{MaxCIDRHosts: 1024})
	ctx := context.Background()

	target, err := r.ResolveTarget(ctx, "192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.10"}, target.IPStrings())
	assert.Empty(t, target.Hostname)

	target, err = r.ResolveTarget(ctx, "192.0.2.0/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1", "192.0.2.2"}, target.IPStrings())

	target, err = r.ResolveTarget(ctx, "192.0.2.8/31")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.8", "192.0.2.9"}, target.IPStrings())

	target, err = r.ResolveTarget(ctx, "192.0.2.5-192.0.2.7")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.5", "192.0.2.6", "192.0.2.7"}, target.IPStrings())

	target, err = r.ResolveTarget(ctx, "http://127.0.0.1:8080/admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, target.IPStrings())
}

func TestResolveTarget_RangeTooLarge(t *testing.T) {
	r := newTestResolver(t, ResolverOptions{MaxCIDRHosts: 256})

	_, err := r.ResolveTarget(context.Background(), "10.0.0.0/16")
	var tooLarge *model.RangeTooLargeError
	require.True(t, errors.As(err, &tooLarge), "got %v", err)
	assert.Equal(t, uint64(65534), tooLarge.Hosts)
	assert.Equal(t, 256, tooLarge.Limit)

	// /24 刚好 254 个可用地址
	target, err := r.ResolveTarget(context.Background(), "10.0.0.0/24")
	require.NoError(t, err)
	assert.Len(t, target.IPs, 254)

	_, err = r.ResolveTarget(context.Background(), "2001:db8::/64")
	assert.True(t, errors.As(err, &tooLarge))
}

func TestResolveTarget_Malformed(t *testing.T) {
	r := newTestResolver(t, ResolverOptions{})

	for _, spec := range []string{"", "  ", "999.1.1.1", "a b", "10.0.0.0/99", "bad_host!", "10.0.0.9-10.0.0.1"} {
		_, err := r.ResolveTarget(context.Background(), spec)
		var re *model.ResolutionError
		assert.True(t, errors.As(err, &re), "spec %q: got %v", spec, err)
	}
}

func TestResolveTarget_Lookup(t *testing.T) {
	r := newTestResolver(t, ResolverOptions{})
	r.lookup = func(ctx context.Context, host string) ([]net.IP, error) {
		switch host {
		case "scanme.example":
			return []net.IP{net.ParseIP("198.51.100.7"), net.ParseIP("198.51.100.3"), net.ParseIP("198.51.100.7")}, nil
		case "empty.example":
			return nil, nil
		}
		return nil, errors.New("no such host")
	}

	target, err := r.ResolveTarget(context.Background(), "scanme.example")
	require.NoError(t, err)
	assert.Equal(t, "scanme.example", target.Hostname)
	assert.Equal(t, []string{"198.51.100.3", "198.51.100.7"}, target.IPStrings())

	var re *model.ResolutionError
	_, err = r.ResolveTarget(context.Background(), "empty.example")
	assert.True(t, errors.As(err, &re))
	_, err = r.ResolveTarget(context.Background(), "missing.example")
	assert.True(t, errors.As(err, &re))
}

func TestResolveTarget_DenyPolicy(t *testing.T) {
	r := newTestResolver(t, ResolverOptions{DenyCIDRs: []string{"169.254.0.0/16"}})

	_, err := r.ResolveTarget(context.Background(), "169.254.169.254")
	var re *model.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Error(), "denied by policy")

	_, err = r.ResolveTarget(context.Background(), "192.0.2.1")
	assert.NoError(t, err)

	_, err = NewResolver(ResolverOptions{DenyCIDRs: []string{"not-a-cidr"}})
	assert.Error(t, err)
}

func TestSplitTargetPort(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"example.com", "example.com", 0},
		{"example.com:8443", "example.com", 8443},
		{"https://example.com", "example.com", 443},
		{"https://example.com:9443/x", "example.com", 9443},
		{"[2001:db8::1]:443", "2001:db8::1", 443},
		{"host:99999", "host:99999", 0},
	}
	for _, tt := range tests {
		host, port := SplitTargetPort(tt.in)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantPort, port, tt.in)
	}
}
