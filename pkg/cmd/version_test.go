package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/telekom/email-sender/pkg/version"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := version.Version, version.GitCommit, version.BuildDate
	t.Cleanup(func() {
		version.Version, version.GitCommit, version.BuildDate = origVersion, origCommit, origDate
	})
	version.Version = "v1.2.3"
	version.GitCommit = "abc123-dirty"
	version.BuildDate = "2026-01-17T15:00:00Z"

	tests := []struct {
		name         string
		args         []string
		wantContains []string
		validateJSON bool
		validateYAML bool
	}{
		{
			name:         "default output format",
			args:         []string{},
			wantContains: []string{"email-sender v1.2.3", "commit: abc123-dirty", "built: 2026-01-17T15:00:00Z"},
		},
		{
			name:         "json output format",
			args:         []string{"-o", "json"},
			validateJSON: true,
			wantContains: []string{`"gitCommit": "abc123-dirty"`},
		},
		{
			name:         "yaml output format",
			args:         []string{"--output", "yaml"},
			validateYAML: true,
			wantContains: []string{"version: v1.2.3", "gitcommit: abc123-dirty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cmd := NewVersionCommand()
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())

			if tt.validateJSON {
				var info version.BuildInfo
				require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
				assert.Equal(t, "v1.2.3", info.Version)
			}
			if tt.validateYAML {
				var info map[string]any
				require.NoError(t, yaml.Unmarshal(buf.Bytes(), &info))
				assert.Equal(t, "v1.2.3", info["version"])
			}
			for _, want := range tt.wantContains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionCommand_UnknownFormat(t *testing.T) {
	cmd := NewVersionCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-o", "table"})

	assert.Error(t, cmd.Execute())
}

func TestRootVersionSkipsConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: "/does/not/exist.yaml", OutputWriter: buf})
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "email-sender ")
}
