package vuln

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("")
	require.NoError(t, err)
	return e
}

func ruleIDs(findings []model.VulnerabilityFinding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.RuleID
	}
	return ids
}

func TestBuiltinRulesLoad(t *testing.T) {
	e := newEngine(t)
	assert.NotEmpty(t, e.Rules())
}

func TestEvaluate_FTPAnonymous(t *testing.T) {
	e := newEngine(t)

	findings := e.Evaluate(Facts{
		Exposures: []model.ExposureResult{
			{IP: "10.0.0.5", Port: 21, Service: "ftp", Check: "ftp", Exposed: true, Detail: "anonymous login accepted"},
		},
	})

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "ftp-anonymous-login", f.RuleID)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, "10.0.0.5", f.IP)
	assert.Equal(t, 21, f.Port)
	assert.Equal(t, "anonymous login accepted", f.Evidence)
	assert.Equal(t, model.SeverityHigh, RiskLevel(findings))
}

func TestEvaluate_FTPAnonymousBanner(t *testing.T) {
	e := newEngine(t)

	findings := e.Evaluate(Facts{
		Services: []model.ServiceFingerprint{
			{IP: "10.0.0.5", Port: 21, Service: "ftp", Product: "vsftpd", Version: "3.0.3",
				Confidence: model.ConfidenceHigh, Banner: "220 Anonymous access allowed\r\n"},
		},
	})

	assert.Equal(t, []string{"ftp-anonymous-banner", "ftp-cleartext"}, ruleIDs(findings))
	assert.Equal(t, "220 Anonymous access allowed", findings[0].Evidence)
	assert.Equal(t, model.SeverityMedium, RiskLevel(findings))
}

func TestEvaluate_NoMatch(t *testing.T) {
	e := newEngine(t)

	findings := e.Evaluate(Facts{
		Services: []model.ServiceFingerprint{
			{IP: "10.0.0.5", Port: 22, Service: "ssh", Product: "OpenSSH", Version: "9.6p1", Confidence: model.ConfidenceHigh},
			{IP: "10.0.0.5", Port: 443, Service: "https", Product: "nginx", Version: "1.25.3", TLS: true},
		},
		Exposures: []model.ExposureResult{
			{IP: "10.0.0.5", Port: 22, Service: "ssh", Check: "ssh", Exposed: false, Detail: "password authentication disabled"},
		},
	})

	assert.NotNil(t, findings)
	assert.Empty(t, findings)
	assert.Equal(t, model.SeverityLow, RiskLevel(findings))
}

func TestEvaluate_Empty(t *testing.T) {
	findings := newEngine(t).Evaluate(Facts{})
	assert.Empty(t, findings)
	assert.Equal(t, model.SeverityLow, RiskLevel(nil))
}

func TestEvaluate_OutdatedOpenSSH(t *testing.T) {
	e := newEngine(t)

	findings := e.Evaluate(Facts{
		Services: []model.ServiceFingerprint{
			{IP: "10.0.0.5", Port: 22, Service: "ssh", Product: "OpenSSH", Version: "7.2p2",
				Banner: "SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n"},
		},
	})

	require.Equal(t, []string{"openssh-outdated"}, ruleIDs(findings))
	assert.Equal(t, "banner=SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n", findings[0].Evidence)
}

func TestEvaluate_TLS(t *testing.T) {
	e := newEngine(t)

	expired := model.TLSFinding{
		IP: "10.0.0.5", Port: 443, HandshakeOK: true,
		Version: "TLS 1.0", LegacyProtocol: true,
		Expired: true, SelfSigned: true, HostnameValid: true,
		Errors: []string{"certificate expired 10 days ago", "self-signed certificate"},
	}
	failed := model.TLSFinding{
		IP: "10.0.0.6", Port: 443,
		Errors: []string{"tls handshake with 10.0.0.6:443 failed: EOF"},
	}

	findings := e.Evaluate(Facts{TLS: []model.TLSFinding{expired, failed}})

	assert.Equal(t, []string{"tls-certificate-expired", "tls-self-signed", "tls-legacy-protocol"}, ruleIDs(findings))
	assert.Equal(t, "certificate expired 10 days ago; self-signed certificate", findings[0].Evidence)
	assert.Equal(t, "ssl_version=TLS 1.0", findings[2].Evidence)
	assert.Equal(t, model.SeverityHigh, RiskLevel(findings))
}

// TestEvaluate_Deterministic 规则顺序优先，其次事实顺序
func TestEvaluate_Deterministic(t *testing.T) {
	e := newEngine(t)
	facts := Facts{
		Services: []model.ServiceFingerprint{
			{IP: "10.0.0.5", Port: 23, Service: "telnet"},
			{IP: "10.0.0.6", Port: 23, Service: "telnet"},
			{IP: "10.0.0.6", Port: 11211, Service: "memcached"},
		},
		Exposures: []model.ExposureResult{
			{IP: "10.0.0.6", Port: 6379, Service: "redis", Check: "redis", Exposed: true},
			{IP: "10.0.0.5", Port: 23, Service: "telnet", Check: "telnet", Exposed: true},
		},
	}

	first := e.Evaluate(facts)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Evaluate(facts))
	}
	assert.Equal(t, []string{
		"redis-unauthenticated",
		"telnet-no-login",
		"telnet-cleartext",
		"telnet-cleartext",
		"memcached-exposed",
	}, ruleIDs(first))
	assert.Equal(t, "10.0.0.5", first[2].IP)
	assert.Equal(t, "10.0.0.6", first[3].IP)
	assert.Equal(t, model.SeverityCritical, RiskLevel(first))
}

// TestEvaluate_PortHint 指纹未命中时，按端口推断的服务仍触发端口类规则
func TestEvaluate_PortHint(t *testing.T) {
	e := newEngine(t)

	findings := e.Evaluate(Facts{Services: []model.ServiceFingerprint{
		{IP: "10.0.0.8", Port: 3389, Service: model.ServiceUnknown, PortHint: "ms-wbt-server", Confidence: model.ConfidenceLow},
		{IP: "10.0.0.8", Port: 40000, Service: model.ServiceUnknown, Confidence: model.ConfidenceLow},
	}})

	require.Equal(t, []string{"rdp-exposed"}, ruleIDs(findings))
	assert.Equal(t, 3389, findings[0].Port)
	assert.Equal(t, "ms-wbt-server", findings[0].Service)
}

func TestNewEngine_ExtraRules(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - id: custom-jenkins
    category: exposure
    severity: HIGH
    title: Jenkins exposed
    scope: service
    when:
      field: product
      operator: equals
      value: Jenkins
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	e, err := NewEngine(file)
	require.NoError(t, err)

	rules := e.Rules()
	last := rules[len(rules)-1]
	assert.Equal(t, "custom-jenkins", last.ID)
	assert.Equal(t, model.SeverityHigh, last.Severity)

	findings := e.Evaluate(Facts{Services: []model.ServiceFingerprint{
		{IP: "10.0.0.7", Port: 8080, Service: "http", Product: "Jenkins", TLS: true},
	}})
	assert.Equal(t, []string{"custom-jenkins"}, ruleIDs(findings))
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "rules:\n  - severity: low\n    scope: service\n    when: {field: service, operator: equals, value: x}\n"},
		{"bad severity", "rules:\n  - id: a\n    severity: urgent\n    scope: service\n    when: {field: service, operator: equals, value: x}\n"},
		{"bad scope", "rules:\n  - id: a\n    severity: low\n    scope: host\n    when: {field: service, operator: equals, value: x}\n"},
		{"empty condition", "rules:\n  - id: a\n    severity: low\n    scope: service\n"},
		{"bad operator", "rules:\n  - id: a\n    severity: low\n    scope: service\n    when: {field: service, operator: matches, value: x}\n"},
		{"bad regex", "rules:\n  - id: a\n    severity: low\n    scope: service\n    when: {field: banner, operator: regex, value: '(unclosed'}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewEngine_DuplicateID(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.yaml")
	content := "rules:\n  - id: telnet-cleartext\n    severity: low\n    scope: service\n    when: {field: service, operator: equals, value: telnet}\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	_, err := NewEngine(file)
	assert.ErrorContains(t, err, "duplicate rule id")
}

func TestRiskLevel(t *testing.T) {
	findings := []model.VulnerabilityFinding{
		{Severity: model.SeverityLow},
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityMedium},
	}
	assert.Equal(t, model.SeverityCritical, RiskLevel(findings))
}
