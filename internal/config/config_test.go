package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/zaloga/internal/upload"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "zaloga.sqlite3", cfg.DB)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, upload.DriverFilesystem, cfg.UploadStore().Driver)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
addr: ":9000"
db: /var/lib/zaloga/db.sqlite3
timezone: Asia/Jakarta
upload:
  driver: s3
  s3:
    bucket: pictures
    path_style: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zaloga.yaml"), []byte(yaml), 0o644))
	t.Setenv("ZALOGA_DB", "/tmp/env.sqlite3")
	t.Setenv("ZALOGA_UPLOAD_S3_REGION", "eu-central-1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr, "flag wins over file")
	assert.Equal(t, "/tmp/env.sqlite3", cfg.DB, "env wins over file")

	up := cfg.UploadStore()
	assert.Equal(t, upload.DriverS3, up.Driver)
	assert.Equal(t, "pictures", up.S3.Bucket)
	assert.Equal(t, "eu-central-1", up.S3.Region)
	assert.True(t, up.S3.PathStyle)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("missing.yaml", nil)
	assert.Error(t, err)

	t.Setenv("ZALOGA_TIMEZONE", "Mars/Olympus")
	_, err = Load("", nil)
	assert.Error(t, err)
}
