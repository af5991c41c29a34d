package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	cmd := List()

	assert.Equal(t, "list", cmd.Use)
	assert.Contains(t, cmd.Aliases, "ls")
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

func TestShow(t *testing.T) {
	cmd := Show()

	assert.Equal(t, "show", cmd.Name())
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"uptime-kuma"}))
}

func TestDoctor(t *testing.T) {
	cmd := Doctor()

	assert.Equal(t, "doctor", cmd.Use)
	assert.Contains(t, cmd.Long, "Nothing on the host is changed.")
	assert.NotNil(t, cmd.RunE)
}

func TestHistory_Flags(t *testing.T) {
	cmd := History()

	limit := cmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("app"))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestRemote_Flags(t *testing.T) {
	cmd := Remote()

	tests := []struct {
		name     string
		defValue string
		required bool
	}{
		{"host", "", true},
		{"key", "", true},
		{"port", "22", false},
		{"user", "root", false},
		{"known-hosts", "", false},
		{"binary", "hostup", false},
	}
	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.name)
		require.NotNil(t, flag, "%s flag should exist", tt.name)
		assert.Equal(t, tt.defValue, flag.DefValue)
		_, required := flag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
		assert.Equal(t, tt.required, required, "%s required", tt.name)
	}
	assert.Error(t, cmd.Args(cmd, nil))
}

func TestServe_Flags(t *testing.T) {
	cmd := Serve()

	listen := cmd.Flags().Lookup("listen")
	require.NotNil(t, listen)
	assert.Equal(t, ":5000", listen.DefValue)
}
