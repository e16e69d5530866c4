package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T, dir string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	privatePath := filepath.Join(dir, ".private.key")
	publicPath := filepath.Join(dir, "public.key")
	require.NoError(t, os.WriteFile(privatePath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(publicPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0644))
	return privatePath, publicPath
}

func TestRunLink(t *testing.T) {
	dir := t.TempDir()
	privatePath, publicPath := writeKeys(t, dir)
	configPath := filepath.Join(dir, "drawchat.json")
	config := `{"privateKeyFile": "` + privatePath + `", "publicKeyFile": "` + publicPath + `"}`
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0600))
	boardConfigPath := filepath.Join(dir, "board.jsonc")
	require.NoError(t, os.WriteFile(boardConfigPath, []byte(`{"defaultTool": "pen", /* pages */ "pages": {}}`), 0600))

	err := run("link", options{
		configFile:      configPath,
		board:           "GROUP_403_COURSE_2024_LESSON_18",
		user:            "Matéo",
		permissions:     "RDC___",
		boardConfigFile: boardConfigPath,
	})
	assert.NoError(t, err)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "drawchat.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{}`), 0600))

	assert.Error(t, run("link", options{configFile: configPath}), "missing board")
	assert.Error(t, run("link", options{configFile: configPath, board: "b"}), "missing keys")

	_, err := readBoardConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
