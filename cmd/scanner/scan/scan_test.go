package scan

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCmd_Subcommands(t *testing.T) {
	path := ""
	cmd := NewScanCmd(&path)

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"port", "vuln", "ssl"}, names)

	oj := cmd.PersistentFlags().Lookup("oj")
	require.NotNil(t, oj)
	assert.True(t, oj.Hidden)
}

func TestScanCmd_ValidatesBeforeScanning(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"json alias extension", []string{"port", "-t", "127.0.0.1", "--oj", "out.txt"}, "must end with .json"},
		{"csv long flag extension", []string{"vuln", "-t", "127.0.0.1", "--outputCsv", "out.json"}, "must end with .csv"},
		{"bad port spec", []string{"port", "-t", "127.0.0.1", "-p", "80-70"}, "range start is greater than end"},
		{"ssl port range", []string{"ssl", "-t", "example.com", "-p", "70000"}, "port out of range"},
		{"missing target", []string{"port"}, "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalOutputOptions.OutputJson = ""
			globalOutputOptions.OutputCsv = ""

			path := ""
			cmd := NewScanCmd(&path)
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SilenceUsage = true

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
