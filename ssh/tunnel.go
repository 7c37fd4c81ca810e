// Package ssh implements SSH local port forwarding for reaching remote
// PostgreSQL servers through a bastion host.
//
// Design decisions:
//   - Uses golang.org/x/crypto/ssh for the SSH client.
//   - Host keys are checked against known_hosts when the file exists.
//   - Allocates a random local port (":0") to avoid conflicts.
//   - The tunnel runs in a background goroutine and is stopped via Stop,
//     which closes the listener and waits for in-flight copies.
//   - Only key-based authentication is supported (with optional passphrase).
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
)

// Addr represents host:port of the local tunnel endpoint.
type Addr struct {
	Host string
	Port int
}

// Tunnel manages an SSH local port forward.
type Tunnel struct {
	sshConfig  *ssh.ClientConfig
	sshAddr    string // e.g. "bastion:22"
	remoteAddr string // e.g. "db-host:5432"

	client   *ssh.Client
	listener net.Listener
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewTunnel creates a tunnel configuration (does not connect yet).
func NewTunnel(cfg config.SSHConfig, dbHost string, dbPort int) (*Tunnel, error) {
	authMethods, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(cfg.KnownHostsPath)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return &Tunnel{
		sshConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            authMethods,
			HostKeyCallback: hostKeys,
		},
		sshAddr:    net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		remoteAddr: net.JoinHostPort(dbHost, strconv.Itoa(dbPort)),
		done:       make(chan struct{}),
	}, nil
}

// Start opens the SSH connection and starts forwarding.
// Returns the local address the database driver should dial.
func (t *Tunnel) Start(ctx context.Context) (*Addr, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.sshAddr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", t.sshAddr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, t.sshAddr, t.sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", t.sshAddr, err)
	}
	t.client = ssh.NewClient(c, chans, reqs)

	t.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.client.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	tcpAddr := t.listener.Addr().(*net.TCPAddr)
	applog.Event("ssh", "tunnel open", "via", t.sshAddr, "remote", t.remoteAddr, "local_port", tcpAddr.Port)

	t.wg.Add(1)
	go t.acceptLoop()

	return &Addr{Host: "127.0.0.1", Port: tcpAddr.Port}, nil
}

// Stop tears down the tunnel. Safe to call more than once.
func (t *Tunnel) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		if t.listener != nil {
			t.listener.Close()
		}
		if t.client != nil {
			t.client.Close()
		}
		t.wg.Wait()
	})
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		localConn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		t.wg.Add(1)
		go t.forward(localConn)
	}
}

// forward pipes data between a local connection and the remote host.
func (t *Tunnel) forward(localConn net.Conn) {
	defer t.wg.Done()
	defer localConn.Close()

	remoteConn, err := t.client.Dial("tcp", t.remoteAddr)
	if err != nil {
		applog.Warn("ssh forward dial failed", "remote", t.remoteAddr, "err", err)
		return
	}
	defer remoteConn.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remoteConn, localConn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(localConn, remoteConn)
		done <- struct{}{}
	}()
	select {
	case <-done:
	case <-t.done:
	}
}

// hostKeyCallback verifies servers against known_hosts. With no path
// configured, ~/.ssh/known_hosts is used when present; otherwise host
// keys are accepted unverified and a warning is logged.
func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".ssh", "known_hosts")
		}
	}
	if path != "" {
		cb, err := knownhosts.New(path)
		if err == nil {
			return cb, nil
		}
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("known_hosts %s: %w", path, err)
		}
	}
	applog.Warn("no known_hosts file, ssh host key will not be verified")
	return ssh.InsecureIgnoreHostKey(), nil
}

// buildAuthMethods creates SSH auth methods from config.
func buildAuthMethods(cfg config.SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("no SSH authentication methods configured (provide a key path)")
	}
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyPath, err)
	}

	var signer ssh.Signer
	if cfg.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(cfg.KeyPassphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}
