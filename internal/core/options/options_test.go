package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
)

func TestPortScanOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    PortScanOptions
		wantErr bool
	}{
		{"ok", PortScanOptions{Target: "127.0.0.1", Port: "22,80-82"}, false},
		{"missing target", PortScanOptions{Port: "80"}, true},
		{"missing ports", PortScanOptions{Target: "127.0.0.1"}, true},
		{"bad ports", PortScanOptions{Target: "127.0.0.1", Port: "80-"}, true},
		{"bad json ext", PortScanOptions{Target: "127.0.0.1", Port: "80", Output: OutputOptions{OutputJson: "out.txt"}}, true},
		{"csv ok", PortScanOptions{Target: "127.0.0.1", Port: "80", Output: OutputOptions{OutputCsv: "out.CSV"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToTask(t *testing.T) {
	p := NewPortScanOptions()
	p.Target = "example.com"
	task := p.ToTask()
	assert.Equal(t, model.TaskTypePortScan, task.Type)
	assert.Equal(t, DefaultPortRange, task.PortRange)

	v := NewVulnScanOptions()
	v.Target = "10.0.0.1"
	v.Port = "21"
	require.NoError(t, v.Validate())
	task = v.ToTask()
	assert.Equal(t, model.TaskTypeVulnScan, task.Type)
	assert.Equal(t, "21", task.PortRange)

	s := NewSSLScanOptions()
	s.Target = "example.com"
	assert.Equal(t, "", s.ToTask().PortRange)
	s.Port = 8443
	assert.Equal(t, "8443", s.ToTask().PortRange)

	s.Port = 70000
	assert.Error(t, s.Validate())
}
