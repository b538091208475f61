package port

import (
	"context"
	"math/rand"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
	"neoscanner/internal/core/pipeline"
)

// fakeDialer 按端口返回预设结果
type fakeDialer struct {
	open     map[int]bool
	maxDelay time.Duration
	block    bool // 阻塞直到 ctx 结束

	mu  sync.Mutex
	rnd *rand.Rand
}

func (d *fakeDialer) delay() time.Duration {
	if d.maxDelay <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.rnd.Int63n(int64(d.maxDelay)))
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.block {
		<-ctx.Done()
		return nil, &net.OpError{Op: "dial", Net: network, Err: ctx.Err()}
	}

	select {
	case <-time.After(d.delay()):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	_, portStr, _ := net.SplitHostPort(address)
	port, _ := strconv.Atoi(portStr)
	if d.open[port] {
		c1, c2 := net.Pipe()
		c2.Close()
		return c1, nil
	}
	return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func TestScheduler_OnlyPort80Open(t *testing.T) {
	ports, err := pipeline.ParsePortSpec("22,80-82")
	require.NoError(t, err)
	assert.Equal(t, model.PortSpec{22, 80, 81, 82}, ports)

	s := NewScheduler(Options{Workers: 4, ProbeTimeout: time.Second, Dialer: &fakeDialer{open: map[int]bool{80: true}}})
	results, partial := s.Run(context.Background(), []string{"10.0.0.1"}, ports)

	assert.False(t, partial)
	require.Len(t, results, 4)
	want := []model.ProbeState{model.StateClosed, model.StateOpen, model.StateClosed, model.StateClosed}
	for i, r := range results {
		assert.Equal(t, ports[i], r.Port)
		assert.Equal(t, want[i], r.State, "port %d", r.Port)
	}
}

func TestScheduler_OrderIndependentOfCompletion(t *testing.T) {
	ports, err := pipeline.ParsePortSpec("1-60")
	require.NoError(t, err)
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}

	d := &fakeDialer{
		open:     map[int]bool{7: true, 33: true},
		maxDelay: 5 * time.Millisecond,
		rnd:      rand.New(rand.NewSource(42)),
	}
	s := NewScheduler(Options{Workers: 16, ProbeTimeout: time.Second, Dialer: d})
	results, partial := s.Run(context.Background(), ips, ports)

	assert.False(t, partial)
	require.Len(t, results, len(ips)*len(ports))
	for i, r := range results {
		assert.Equal(t, ips[i/len(ports)], r.IP)
		assert.Equal(t, ports[i%len(ports)], r.Port)
	}
	assert.Equal(t, model.StateOpen, results[6].State)
	assert.Equal(t, model.StateOpen, results[60+32].State)
}

func TestScheduler_NoListenerNeverOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewScheduler(Options{Workers: 1, ProbeTimeout: time.Second})
	results, _ := s.Run(context.Background(), []string{"127.0.0.1"}, model.PortSpec{port})

	require.Len(t, results, 1)
	assert.NotEqual(t, model.StateOpen, results[0].State)
}

func TestScheduler_LocalListenerOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	s := NewScheduler(Options{Workers: 2, ProbeTimeout: time.Second})
	results, partial := s.Run(context.Background(), []string{"127.0.0.1"}, model.PortSpec{port})

	assert.False(t, partial)
	require.Len(t, results, 1)
	assert.Equal(t, model.StateOpen, results[0].State)
	assert.GreaterOrEqual(t, results[0].LatencyMs, 0.0)
}

func TestScheduler_ShortDeadlineIsPartial(t *testing.T) {
	ports, err := pipeline.ParsePortSpec("1-200")
	require.NoError(t, err)

	s := NewScheduler(Options{Workers: 10, ProbeTimeout: 5 * time.Second, Dialer: &fakeDialer{block: true}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	results, partial := s.Run(ctx, []string{"10.0.0.1"}, ports)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, partial)
	require.Len(t, results, 200)
	for _, r := range results {
		assert.Equal(t, model.StateFiltered, r.State)
	}
}

func TestScheduler_ProbeTimeout(t *testing.T) {
	s := NewScheduler(Options{Workers: 2, ProbeTimeout: 20 * time.Millisecond, Dialer: &fakeDialer{block: true}, Adaptive: true})
	results, partial := s.Run(context.Background(), []string{"10.0.0.1"}, model.PortSpec{80, 443})

	assert.False(t, partial)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.StateTimeout, r.State)
	}
}

func TestScheduler_Empty(t *testing.T) {
	s := NewScheduler(Options{})
	results, partial := s.Run(context.Background(), nil, model.PortSpec{80})
	assert.Empty(t, results)
	assert.False(t, partial)
}
