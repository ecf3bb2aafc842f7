package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "chain")
	ini := "[store]\ntype = leveldb\ndirectory = " + dataDir + "\n"
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(ini), 0o644))
	return path, dataDir
}

func TestSeedBlockAndValidate(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := execute(t, "seed", "-c", cfgPath, "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Block#"))

	out, err = execute(t, "block", "2", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Block - 2")

	out, err = execute(t, "validate", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No errors detected")

	_, err = execute(t, "block", "99", "-c", cfgPath)
	assert.Error(t, err)
}

func TestSignPrintsAddressAndSignature(t *testing.T) {
	key := strings.Repeat("0", 63) + "1"
	out, err := execute(t, "sign", "-k", key, "-m", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	assert.Contains(t, out, "signature:")

	_, err = execute(t, "sign", "-k", "zz", "-m", "")
	assert.Error(t, err)
}
