package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionVerb(t *testing.T) {
	cmd, err := Parse("app:a1b2c3d4:5f1a2b3c4d5e6f7a8b9c0d1e")
	require.NoError(t, err)
	assert.Equal(t, VerbApprove, cmd.Verb)
	assert.Equal(t, "a1b2c3d4", cmd.Ref)
	assert.Equal(t, "5f1a2b3c4d5e6f7a8b9c0d1e", cmd.Arg(0))
}

func TestParseSendAllHasNoRef(t *testing.T) {
	cmd, err := Parse("all")
	require.NoError(t, err)
	assert.Equal(t, VerbSendAll, cmd.Verb)
	assert.Empty(t, cmd.Ref)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", ":", "bogus:ref", "app", "app:"} {
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrMalformedCallback, "data %q", data)
	}
}

func TestDataRoundTrip(t *testing.T) {
	data := Data(VerbUnban, "a1b2c3d4", "42")
	cmd, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, VerbUnban, cmd.Verb)
	assert.Equal(t, "a1b2c3d4", cmd.Ref)
	assert.Equal(t, "42", cmd.Arg(0))

	assert.Equal(t, "all", Data(VerbSendAll, ""))
}

func TestArgOutOfRangeIsEmpty(t *testing.T) {
	cmd, err := Parse("set:a1b2c3d4")
	require.NoError(t, err)
	assert.Empty(t, cmd.Arg(0))
	assert.Empty(t, cmd.Arg(-1))
}
