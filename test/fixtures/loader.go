package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// LoadABI loads a fixture ABI JSON file and returns its raw bytes.
func LoadABI(t *testing.T, filename string) []byte {
	t.Helper()
	path := filepath.Join(fixturesDir(), "abis", filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to load fixture ABI: %s", filename)
	require.True(t, json.Valid(data), "fixture ABI is not JSON: %s", filename)
	return data
}

// SourcifyMetadata wraps a fixture ABI in the metadata.json layout served
// by the Sourcify repository.
func SourcifyMetadata(t *testing.T, filename, contractName string) []byte {
	t.Helper()
	meta := map[string]interface{}{
		"output": map[string]json.RawMessage{"abi": LoadABI(t, filename)},
		"settings": map[string]interface{}{
			"compilationTarget": map[string]string{"contracts/" + contractName + ".sol": contractName},
		},
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	return data
}
