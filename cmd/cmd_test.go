package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

func TestParseCoordinates(t *testing.T) {
	c, err := parseCoordinates("40.7, -74.0")
	require.NoError(t, err)
	assert.Equal(t, meeting.Coordinates{Lat: 40.7, Lng: -74}, c)

	for _, bad := range []string{"", "40.7", "91,0", "0,181", "a,b", "1,2,3"} {
		_, err := parseCoordinates(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTimeFlag(t *testing.T) {
	zero, err := parseTimeFlag("from", "")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	ts, err := parseTimeFlag("from", "2026-03-02T09:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 9, ts.Hour())

	_, err = parseTimeFlag("to", "tomorrow")
	assert.ErrorContains(t, err, "--to")
}

func TestKeysAndVersion(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"keys", "--env-file", "testdata-missing.env"})
	require.NoError(t, root.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "export CRED_ENC_KEY="))

	out.Reset()
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--env-file", "testdata-missing.env"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "meetsched dev")
}
