package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/core"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(Config{Type: "local", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Type: "s3", S3: S3Config{Bucket: "results"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Type: "local"})
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	_, err = New(Config{Type: "s3"})
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	_, err = New(Config{Type: "gcs", Path: "x"})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
