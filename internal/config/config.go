// Package config loads the deployment-adjacent marketplace settings:
// identities, price, distribution wallets, and bootstrap grants.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LedgerID    string `yaml:"ledger_id"`
	Deployer    string `yaml:"deployer"`
	Marketplace string `yaml:"marketplace"`

	PricePerTile uint64   `yaml:"price_per_tile"`
	Wallets      []string `yaml:"wallets"`

	// DECREMENT or UNLIMITED; see the token package.
	AllowancePolicy string `yaml:"allowance_policy"`

	SnapshotEveryOps uint64 `yaml:"snapshot_every_ops"`

	// Bootstrap role grants beyond the deployer (deploy-script analog).
	Operators []OperatorGrant `yaml:"operators,omitempty"`

	// Initial token supply minted at first boot.
	Mint []MintSpec `yaml:"mint,omitempty"`
}

type OperatorGrant struct {
	Addr  string   `yaml:"addr"`
	Roles []string `yaml:"roles"`
}

type MintSpec struct {
	Addr   string `yaml:"addr"`
	Amount uint64 `yaml:"amount"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("market.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("market.yaml: %w", err)
	}
	return cfg, nil
}

// Dev identities; real deployments must override them.
func defaults() Config {
	return Config{
		LedgerID:         "MAINLAND",
		Deployer:         "0x00000000000000000000000000000000000000a1",
		Marketplace:      "0x00000000000000000000000000000000000000b1",
		PricePerTile:     250,
		Wallets:          []string{"0x00000000000000000000000000000000000000c1"},
		AllowancePolicy:  "UNLIMITED",
		SnapshotEveryOps: 500,
	}
}

func (c *Config) Normalize() {
	c.LedgerID = strings.TrimSpace(c.LedgerID)
	c.Deployer = strings.ToLower(strings.TrimSpace(c.Deployer))
	c.Marketplace = strings.ToLower(strings.TrimSpace(c.Marketplace))
	c.AllowancePolicy = strings.ToUpper(strings.TrimSpace(c.AllowancePolicy))
	for i := range c.Wallets {
		c.Wallets[i] = strings.ToLower(strings.TrimSpace(c.Wallets[i]))
	}
	for i := range c.Operators {
		c.Operators[i].Addr = strings.ToLower(strings.TrimSpace(c.Operators[i].Addr))
		for j := range c.Operators[i].Roles {
			c.Operators[i].Roles[j] = strings.ToUpper(strings.TrimSpace(c.Operators[i].Roles[j]))
		}
	}
	for i := range c.Mint {
		c.Mint[i].Addr = strings.ToLower(strings.TrimSpace(c.Mint[i].Addr))
	}
}

func validAddr(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (c *Config) Validate() error {
	if c.LedgerID == "" {
		return fmt.Errorf("empty ledger_id")
	}
	if !validAddr(c.Deployer) {
		return fmt.Errorf("bad deployer address %q", c.Deployer)
	}
	if !validAddr(c.Marketplace) {
		return fmt.Errorf("bad marketplace address %q", c.Marketplace)
	}
	if c.Deployer == c.Marketplace {
		return fmt.Errorf("deployer and marketplace must differ")
	}
	if len(c.Wallets) == 0 {
		return fmt.Errorf("at least one wallet required")
	}
	for _, w := range c.Wallets {
		if !validAddr(w) {
			return fmt.Errorf("bad wallet address %q", w)
		}
	}
	switch c.AllowancePolicy {
	case "DECREMENT", "UNLIMITED":
	default:
		return fmt.Errorf("bad allowance_policy %q", c.AllowancePolicy)
	}
	for _, op := range c.Operators {
		if !validAddr(op.Addr) {
			return fmt.Errorf("bad operator address %q", op.Addr)
		}
		if len(op.Roles) == 0 {
			return fmt.Errorf("operator %s has no roles", op.Addr)
		}
		for _, r := range op.Roles {
			switch r {
			case "ADMIN", "DEV", "MINTER", "MANAGER", "CONTRACT":
			default:
				return fmt.Errorf("operator %s has unknown role %q", op.Addr, r)
			}
		}
	}
	for _, m := range c.Mint {
		if !validAddr(m.Addr) {
			return fmt.Errorf("bad mint address %q", m.Addr)
		}
	}
	return nil
}
