package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	conf := Default()
	require.NoError(t, conf.Validate())
	assert.Equal(t, "persistent", conf.Prefix)
	assert.Equal(t, int64(1<<20), conf.FDBase)
	assert.Equal(t, "mem", conf.Backend)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prefix: mnt
backend: s3
s3:
  bucket: my-bucket
  region: eu-west-1
`), 0o644))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mnt", conf.Prefix)
	assert.Equal(t, "s3", conf.Backend)
	assert.Equal(t, "my-bucket", conf.S3.Bucket)
	assert.Equal(t, "eu-west-1", conf.S3.Region)
	// Unset fields keep their defaults.
	assert.Equal(t, int64(1<<20), conf.FDBase)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: s3\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "s3 backend without a bucket")
}

func TestValidate(t *testing.T) {
	conf := Default()
	conf.Prefix = ""
	assert.Error(t, conf.Validate())

	conf = Default()
	conf.Backend = "nfs"
	assert.Error(t, conf.Validate())

	conf = Default()
	conf.FDBase = 0
	assert.Error(t, conf.Validate())
}
