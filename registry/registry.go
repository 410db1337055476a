// Package registry persists deployed asset contracts per network in a
// deployments.json file shared with the deployment tooling.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/creachadair/atomicfile"
)

// ContractName is the key the enforced-royalty collection is stored under
const ContractName = "ERC721_Enforced_Royalties"

// DefaultPath is the registry file used when none is configured
const DefaultPath = "deployments.json"

// ErrNotFound is returned by Lookup when the network has no deployment
var ErrNotFound = errors.New("deployment not found")

// Deployment is the metadata recorded for one deployed collection
type Deployment struct {
	Address         string    `json:"address"`
	Deployer        string    `json:"deployer"`
	Validator       string    `json:"validator"`
	RoyaltyReceiver string    `json:"royaltyReceiver"`
	RoyaltyFee      int64     `json:"royaltyFee"`
	DeployedAt      time.Time `json:"deployedAt"`
}

// Registry maps network name -> contract name -> deployment
type Registry struct {
	entries map[string]map[string]Deployment
}

// New returns an empty registry
func New() *Registry {
	return &Registry{entries: make(map[string]map[string]Deployment)}
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	r := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("failed to decode registry %s: %w", path, err)
	}
	if r.entries == nil {
		r.entries = make(map[string]map[string]Deployment)
	}
	return r, nil
}

// Lookup returns the collection deployment for network
func (r *Registry) Lookup(network string) (Deployment, error) {
	d, ok := r.entries[network][ContractName]
	if !ok || d.Address == "" {
		return Deployment{}, fmt.Errorf("%w: network %q", ErrNotFound, network)
	}
	return d, nil
}

// Merge records d as the collection deployment for network, replacing any previous one
// and leaving other networks untouched
func (r *Registry) Merge(network string, d Deployment) {
	contracts, ok := r.entries[network]
	if !ok {
		contracts = make(map[string]Deployment)
		r.entries[network] = contracts
	}
	contracts[ContractName] = d
}

// Networks returns the networks with at least one deployment, sorted
func (r *Registry) Networks() []string {
	networks := make([]string, 0, len(r.entries))
	for network := range r.entries {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	return networks
}

// Save atomically replaces the file at path with the registry contents
func (r *Registry) Save(path string) error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	data = append(data, '\n')

	if _, err := atomicfile.WriteAll(path, bytes.NewReader(data), 0644); err != nil {
		return fmt.Errorf("failed to write registry %s: %w", path, err)
	}
	return nil
}
