// connections.go manages saved database connections.
//
// Connections are stored in ~/.asksql/connections.yaml so users
// can quickly reconnect without retyping credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ConnectionStore manages saved connections on disk.
type ConnectionStore struct {
	path        string
	Connections []Connection `yaml:"connections"`
}

// NewConnectionStore loads ~/.asksql/connections.yaml.
func NewConnectionStore() (*ConnectionStore, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return OpenConnectionStore(filepath.Join(dir, "connections.yaml"))
}

// OpenConnectionStore loads the store at path; a missing file is an
// empty store.
func OpenConnectionStore(path string) (*ConnectionStore, error) {
	store := &ConnectionStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parse connections: %w", err)
	}
	return store, nil
}

// Save writes all connections to disk.
func (s *ConnectionStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Add adds or updates a connection by name.
func (s *ConnectionStore) Add(conn Connection) error {
	if conn.Name == "" {
		return invalid("name", "saved connections need a name")
	}
	if err := conn.Validate(); err != nil {
		return err
	}
	for i, c := range s.Connections {
		if c.Name == conn.Name {
			s.Connections[i] = conn
			return nil
		}
	}
	s.Connections = append(s.Connections, conn)
	sort.Slice(s.Connections, func(i, j int) bool {
		return s.Connections[i].Name < s.Connections[j].Name
	})
	return nil
}

// Delete removes a connection by name and reports whether it existed.
func (s *ConnectionStore) Delete(name string) bool {
	for i, c := range s.Connections {
		if c.Name == name {
			s.Connections = append(s.Connections[:i], s.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// Get retrieves a connection by name.
func (s *ConnectionStore) Get(name string) (Connection, bool) {
	for _, c := range s.Connections {
		if c.Name == name {
			return c, true
		}
	}
	return Connection{}, false
}
