package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalArchiveObjectKey(t *testing.T) {
	a, err := NewSignalArchive(SignalArchiveConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "pulse-signals",
		Prefix:    "series",
	})
	require.NoError(t, err)

	assert.Equal(t, "series/abc.json", a.ObjectKey("abc"))
	assert.Equal(t, "series/2026/10/run-1.json", a.ObjectKey("2026/10/run-1"))

	a.Prefix = ""
	assert.Equal(t, "abc.json", a.ObjectKey("abc"))
}
