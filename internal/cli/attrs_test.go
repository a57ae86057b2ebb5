package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")

	_, err := execute(t, "--db", db, "set", "step", "7", "copies", "2", "--scope", "1", "--type", "integer")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "set", "step", "7", "distribute", "false", "--scope", "1", "-t", "bool")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "set", "trans", "1", "description", "Daily load")
	require.NoError(t, err)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"get", "step", "7", "copies"}, "2\n"},
		{[]string{"get", "step", "7", "copies", "--type", "integer"}, "2\n"},
		{[]string{"get", "step", "7", "copies", "--type", "number"}, "2\n"},
		{[]string{"get", "step", "7", "distribute"}, "\"N\"\n"},
		{[]string{"get", "step", "7", "distribute", "--type", "bool"}, "false\n"},
		{[]string{"get", "trans", "1", "description", "--type", "string"}, "Daily load\n"},
	}
	for _, tt := range tests {
		out, err := execute(t, append([]string{"--db", db}, tt.args...)...)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, out, tt.args)
	}
}

func TestGetJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")
	_, err := execute(t, "--db", db, "set", "job", "3", "name", "nightly")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--format", "json", "get", "job", "3", "name")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   AttrResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "job", resp.Data.Kind)
	assert.Equal(t, int64(3), resp.Data.OwnerID)
	assert.Equal(t, "nightly", resp.Data.Value)
	assert.Positive(t, resp.Data.ID)
}

func TestGetMissingIsFailure(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")

	out, err := execute(t, "--db", db, "get", "job", "3", "name")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestGetUndecodableIsFailure(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")
	_, err := execute(t, "--db", db, "set", "job", "3", "enabled", "maybe")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "get", "job", "3", "enabled", "--type", "bool")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [CONVERSION]")
}

func TestSetArgumentErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown kind", []string{"set", "widget", "1", "a", "b"}, "invalid kind"},
		{"bad owner", []string{"set", "job", "x", "a", "b"}, "not an integer id"},
		{"bad integer", []string{"set", "job", "1", "a", "b", "--type", "integer"}, "invalid value"},
		{"missing scope", []string{"set", "step", "1", "a", "b"}, "need --scope"},
		{"negative nr", []string{"set", "job", "1", "a", "b", "--nr", "-1"}, "negative nr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCount(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")
	for _, nr := range []string{"0", "1", "3"} {
		_, err := execute(t, "--db", db, "set", "step", "7", "field_name", "f"+nr, "--scope", "1", "--nr", nr)
		require.NoError(t, err)
	}

	out, err := execute(t, "--db", db, "count", "step", "7", "field_name")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	// The buffered count stops at the missing nr 2.
	out, err = execute(t, "--db", db, "count", "step", "7", "field_name", "--scope", "1")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestNextID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "repo.db")

	out, err := execute(t, "--db", db, "nextid", "r_step", "id_step")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = execute(t, "--db", db, "set", "job", "1", "a", "b")
	require.NoError(t, err)
	out, err = execute(t, "--db", db, "nextid", "--kind", "job")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = execute(t, "--db", db, "nextid", "r_step")
	assert.Error(t, err)

	_, err = execute(t, "--db", db, "nextid", "r_nope", "id_nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
