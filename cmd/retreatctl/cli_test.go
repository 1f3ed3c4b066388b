package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("PAYMENTS_FAKE", "true")
	t.Setenv("APP_ENV", "development")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"migrate", "admin", "export", "topics"} {
		assert.Contains(t, out, name)
	}
}

func TestCommandsRequireBackends(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{name: "migrate", args: []string{"migrate"}, wantErr: "DATABASE_URL is required"},
		{name: "export", args: []string{"export"}, wantErr: "DATABASE_URL is required"},
		{name: "topics create", args: []string{"topics", "create"}, wantErr: "KAFKA_BROKERS is required"},
		{
			name:    "admin create with stdin password",
			stdin:   "a-long-enough-password\n",
			args:    []string{"admin", "create", "staff@example.org", "--password-stdin"},
			wantErr: "DATABASE_URL is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.stdin, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestAdminCreateRequiresPassword(t *testing.T) {
	t.Setenv(passwordEnv, "")
	_, err := execute(t, "", "admin", "create", "staff@example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
}

func TestExportRejectsUnknownStatus(t *testing.T) {
	_, err := execute(t, "", "export", "--status", "lost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}
