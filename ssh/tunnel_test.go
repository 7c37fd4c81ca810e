package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/DachengChen/askSQL/config"
)

func writeKey(t *testing.T, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return path, sshPub
}

func TestBuildAuthMethods(t *testing.T) {
	path, _ := writeKey(t, "")
	methods, err := buildAuthMethods(config.SSHConfig{KeyPath: path})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	protected, _ := writeKey(t, "open sesame")
	_, err = buildAuthMethods(config.SSHConfig{KeyPath: protected, KeyPassphrase: "open sesame"})
	require.NoError(t, err)
	_, err = buildAuthMethods(config.SSHConfig{KeyPath: protected, KeyPassphrase: "wrong"})
	require.Error(t, err)

	_, err = buildAuthMethods(config.SSHConfig{})
	require.Error(t, err)
	_, err = buildAuthMethods(config.SSHConfig{KeyPath: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestHostKeyCallbackUsesKnownHosts(t *testing.T) {
	_, trusted := writeKey(t, "")
	_, stranger := writeKey(t, "")

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize("bastion:22")}, trusted)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0600))

	cb, err := hostKeyCallback(path)
	require.NoError(t, err)

	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
	assert.NoError(t, cb("bastion:22", addr, trusted))
	assert.Error(t, cb("bastion:22", addr, stranger))

	_, err = hostKeyCallback(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestNewTunnelDefaultsPort(t *testing.T) {
	key, _ := writeKey(t, "")
	known := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(known, nil, 0600))

	tun, err := NewTunnel(config.SSHConfig{Host: "bastion", User: "ops", KeyPath: key, KnownHostsPath: known}, "db.internal", 5432)
	require.NoError(t, err)
	assert.Equal(t, "bastion:22", tun.sshAddr)
	assert.Equal(t, "db.internal:5432", tun.remoteAddr)
	tun.Stop()
	tun.Stop()
}
