package runner

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/config"
	"neoscanner/internal/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewConfigLoader(t.TempDir(), "NEOSCAN_RUNNER_TEST").LoadDefaults()
	require.NoError(t, err)
	cfg.Scanner.ProbeTimeout = time.Second
	cfg.Scanner.BannerTimeout = 500 * time.Millisecond
	cfg.Scanner.ScanDeadline = 10 * time.Second
	cfg.Exposure.Enabled = false
	return cfg
}

func newManager(t *testing.T) *RunnerManager {
	t.Helper()
	m, err := NewRunnerManager(testConfig(t))
	require.NoError(t, err)
	return m
}

// serveBanner 本地监听，连接后立即发送 banner 并保持连接
func serveBanner(t *testing.T, banner string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				conn.Write([]byte(banner))
				conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				buf := make([]byte, 256)
				for {
					if _, err := conn.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort 返回一个当前没有监听的本地端口
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	p := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return p
}

func portList(ports ...int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func TestPortScan_Local(t *testing.T) {
	m := newManager(t)
	open := serveBanner(t, "SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n")
	closed := closedPort(t)

	task := model.NewTask(model.TaskTypePortScan, "127.0.0.1", portList(open, closed))
	report, err := m.Execute(context.Background(), task)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, model.TaskTypePortScan, report.Kind)
	assert.Equal(t, []string{"127.0.0.1"}, report.IPs)
	assert.Equal(t, model.ReportCompleted, report.Status)
	require.Len(t, report.Probes, 2)

	// 升序输出
	lo, hi := open, closed
	if lo > hi {
		lo, hi = hi, lo
	}
	assert.Equal(t, lo, report.Probes[0].Port)
	assert.Equal(t, hi, report.Probes[1].Port)

	for _, p := range report.Probes {
		if p.Port == open {
			assert.Equal(t, model.StateOpen, p.State)
			assert.Contains(t, p.Banner, "OpenSSH_7.2p2")
		} else {
			assert.NotEqual(t, model.StateOpen, p.State)
		}
	}

	require.Len(t, report.Services, 1)
	assert.Equal(t, "ssh", report.Services[0].Service)
	assert.Equal(t, "7.2p2", report.Services[0].Version)

	// 端口扫描不做规则评估
	assert.Empty(t, report.Vulnerabilities)
	assert.Equal(t, model.SeverityLow, report.RiskLevel)
}

func TestVulnScan_FTPBanner(t *testing.T) {
	m := newManager(t)
	port := serveBanner(t, "220 Anonymous FTP access allowed\r\n")

	task := model.NewTask(model.TaskTypeVulnScan, "127.0.0.1", strconv.Itoa(port))
	st := m.Submit(context.Background(), task)
	report, err := st.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status())

	require.Len(t, report.Services, 1)
	assert.Equal(t, "ftp", report.Services[0].Service)

	ids := make([]string, len(report.Vulnerabilities))
	for i, v := range report.Vulnerabilities {
		ids[i] = v.RuleID
	}
	assert.Equal(t, []string{"ftp-anonymous-banner", "ftp-cleartext"}, ids)
	assert.Equal(t, model.SeverityMedium, report.RiskLevel)
}

func TestSSLScan_SelfSigned(t *testing.T) {
	m := newManager(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "https://")
	report, err := m.Execute(context.Background(), model.NewTask(model.TaskTypeSSLScan, addr, ""))
	require.NoError(t, err)

	require.Len(t, report.TLS, 1)
	f := report.TLS[0]
	assert.True(t, f.HandshakeOK)
	assert.True(t, f.SelfSigned)
	assert.False(t, f.CertificateValid)
	assert.NotEmpty(t, f.Version)

	var ids []string
	for _, v := range report.Vulnerabilities {
		ids = append(ids, v.RuleID)
	}
	assert.Contains(t, ids, "tls-self-signed")
}

// TestSSLScan_ExplicitPortWins target 自带端口时，显式 port 优先
func TestSSLScan_ExplicitPortWins(t *testing.T) {
	m := newManager(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	tlsPort := srv.Listener.Addr().(*net.TCPAddr).Port

	target := "127.0.0.1:" + strconv.Itoa(closedPort(t))
	report, err := m.Execute(context.Background(), model.NewTask(model.TaskTypeSSLScan, target, strconv.Itoa(tlsPort)))
	require.NoError(t, err)

	require.Len(t, report.TLS, 1)
	assert.Equal(t, tlsPort, report.TLS[0].Port)
	assert.True(t, report.TLS[0].HandshakeOK)
}

func TestSubmit_RequestErrors(t *testing.T) {
	m := newManager(t)

	tests := []struct {
		name   string
		task   *model.Task
		assert func(t *testing.T, err error)
	}{
		{
			name: "invalid ports",
			task: model.NewTask(model.TaskTypePortScan, "127.0.0.1", "0-5"),
			assert: func(t *testing.T, err error) {
				var pe *model.InvalidPortSpecError
				assert.True(t, errors.As(err, &pe))
			},
		},
		{
			name: "malformed target",
			task: model.NewTask(model.TaskTypeVulnScan, "999.1.1.1", "80"),
			assert: func(t *testing.T, err error) {
				var re *model.ResolutionError
				assert.True(t, errors.As(err, &re))
			},
		},
		{
			name: "range too large",
			task: model.NewTask(model.TaskTypePortScan, "10.0.0.0/8", "80"),
			assert: func(t *testing.T, err error) {
				var re *model.RangeTooLargeError
				assert.True(t, errors.As(err, &re))
			},
		},
		{
			name: "bad ssl port",
			task: model.NewTask(model.TaskTypeSSLScan, "127.0.0.1", "https"),
			assert: func(t *testing.T, err error) {
				var pe *model.InvalidPortSpecError
				assert.True(t, errors.As(err, &pe))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := m.Submit(context.Background(), tt.task)
			report, err := st.Wait(context.Background())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, model.IsRequestError(err))
			assert.Equal(t, model.TaskStatusFailed, st.Status())
			tt.assert(t, err)
		})
	}
}

// blockingRunner 阻塞到 ctx 结束，返回部分报告
type blockingRunner struct {
	started chan struct{}
}

func (r *blockingRunner) Name() model.TaskType { return model.TaskTypePortScan }

func (r *blockingRunner) Run(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	close(r.started)
	<-ctx.Done()
	return &model.ScanReport{ID: task.ID, Status: model.ReportPartial}, nil
}

func TestScanTask_Cancel(t *testing.T) {
	m := NewEmptyManager(time.Minute)
	r := &blockingRunner{started: make(chan struct{})}
	m.Register(r)

	st := m.Submit(context.Background(), model.NewTask(model.TaskTypePortScan, "127.0.0.1", "80"))
	<-r.started
	assert.Equal(t, model.TaskStatusRunning, st.Status())

	st.Cancel()
	report, err := st.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ReportPartial, report.Status)
	assert.Equal(t, model.TaskStatusCancelled, st.Status())
}

func TestScanTask_Deadline(t *testing.T) {
	m := NewEmptyManager(time.Minute)
	m.Register(&blockingRunner{started: make(chan struct{})})

	task := model.NewTask(model.TaskTypePortScan, "127.0.0.1", "80")
	task.Timeout = 50 * time.Millisecond

	start := time.Now()
	st := m.Submit(context.Background(), task)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), st.Deadline(), 20*time.Millisecond)

	report, err := st.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ReportPartial, report.Status)
	assert.Equal(t, model.TaskStatusCompleted, st.Status())
	assert.NotEmpty(t, st.ID())
}

// TestScanTask_TimeoutCappedByDeadline 请求超时大于全局时限时按全局时限截止
func TestScanTask_TimeoutCappedByDeadline(t *testing.T) {
	m := NewEmptyManager(100 * time.Millisecond)
	m.Register(&blockingRunner{started: make(chan struct{})})

	task := model.NewTask(model.TaskTypePortScan, "127.0.0.1", "80")
	task.Timeout = 300 * time.Second

	start := time.Now()
	st := m.Submit(context.Background(), task)
	assert.WithinDuration(t, start.Add(100*time.Millisecond), st.Deadline(), 20*time.Millisecond)

	report, err := st.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ReportPartial, report.Status)
}

func TestScanTask_WaitContext(t *testing.T) {
	m := NewEmptyManager(time.Minute)
	m.Register(&blockingRunner{started: make(chan struct{})})

	st := m.Submit(context.Background(), model.NewTask(model.TaskTypePortScan, "127.0.0.1", "80"))
	defer st.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := st.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-st.Done():
		t.Fatal("task should keep running after the waiter gives up")
	default:
	}
}

func TestSubmit_UnknownType(t *testing.T) {
	m := NewEmptyManager(0)
	st := m.Submit(context.Background(), model.NewTask("os", "127.0.0.1", ""))
	_, err := st.Wait(context.Background())
	assert.ErrorContains(t, err, "no runner found")
	assert.Equal(t, model.TaskStatusFailed, st.Status())
}
