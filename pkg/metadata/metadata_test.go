package metadata

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPopulatesIdentity(t *testing.T) {
	m := Collect()

	_, err := uuid.Parse(m.SessionID)
	require.NoError(t, err, "session id must be a valid UUID")
	assert.Equal(t, os.Getpid(), m.PID)
	assert.NotEmpty(t, m.Host)
	assert.NotEmpty(t, m.ScriptPath)
}

func TestCollectGeneratesUniqueSessions(t *testing.T) {
	assert.NotEqual(t, Collect().SessionID, Collect().SessionID)
}

func TestRunByEnvOverride(t *testing.T) {
	t.Setenv("RUN_BY", "batch-svc")
	m := Collect()
	assert.Equal(t, "batch-svc", m.RunBy)
}
