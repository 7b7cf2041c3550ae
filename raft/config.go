package raft

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one replica's identity and its view of the cluster: a
// Node/Cluster/Peer split keyed on unix-socket replica ids sharing a socket
// directory.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Cluster ClusterConfig `yaml:"cluster"`
}

type NodeConfig struct {
	ID      string `yaml:"id"`
	BaseDir string `yaml:"base_dir"`
}

type ClusterConfig struct {
	Peers []PeerConfig `yaml:"peers"`
}

type PeerConfig struct {
	ID string `yaml:"id"`
}

// LoadConfig reads and validates a cluster config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return fmt.Errorf("node.id is required")
	}
	if c.Node.BaseDir == "" {
		return fmt.Errorf("node.base_dir is required")
	}
	if len(c.Cluster.Peers) == 0 {
		return fmt.Errorf("cluster.peers must contain at least one peer")
	}

	found := false
	seen := make(map[string]bool, len(c.Cluster.Peers))
	for _, peer := range c.Cluster.Peers {
		if peer.ID == c.Node.ID {
			found = true
		}
		if seen[peer.ID] {
			return fmt.Errorf("duplicate peer id: %s", peer.ID)
		}
		seen[peer.ID] = true
	}
	if !found {
		return fmt.Errorf("node.id=%s not found in cluster.peers", c.Node.ID)
	}

	return nil
}

// PeerIDs returns every cluster member other than Node.ID.
func (c *Config) PeerIDs() []string {
	peers := make([]string, 0, len(c.Cluster.Peers)-1)
	for _, peer := range c.Cluster.Peers {
		if peer.ID != c.Node.ID {
			peers = append(peers, peer.ID)
		}
	}
	return peers
}
