package blockcerts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Chain describes a blockchain certificates can be anchored to.
type Chain struct {
	Code string
	Name string
	Test bool
}

const mocknetChain = "mocknet"

var knownChains = map[string]Chain{
	"bitcoin":    {Code: "bitcoin", Name: "Bitcoin"},
	"testnet":    {Code: "testnet", Name: "Bitcoin Testnet", Test: true},
	"ethmain":    {Code: "ethmain", Name: "Ethereum"},
	"ethsepolia": {Code: "ethsepolia", Name: "Ethereum Sepolia", Test: true},
	mocknetChain: {Code: mocknetChain, Name: "Mocknet", Test: true},
}

// LookupChain returns the chain with the given code.
func LookupChain(code string) (Chain, bool) {
	c, ok := knownChains[strings.ToLower(code)]
	return c, ok
}

// TransactionLookup resolves an anchor to the merkle root recorded in its transaction.
type TransactionLookup interface {
	MerkleRoot(ctx context.Context, anchor Anchor) (string, error)
}

// MockChain serves the mocknet chain: a mock anchor carries the merkle root as its transaction id.
// It anchors nothing, so verifiers only accept it when asked to (WithMocknet, TRUSTED_CHAINS).
type MockChain struct{}

func (MockChain) MerkleRoot(ctx context.Context, anchor Anchor) (string, error) {
	if anchor.SourceID == "" {
		return "", NewAnchorError("mock anchor has no source id")
	}
	return strings.ToLower(anchor.SourceID), nil
}

// LedgerEntry is one recorded transaction of a StaticLedger.
type LedgerEntry struct {
	Chain         string `yaml:"chain"`
	TransactionID string `yaml:"transactionId"`
	MerkleRoot    string `yaml:"merkleRoot"`
}

type ledgerFile struct {
	Transactions []LedgerEntry `yaml:"transactions"`
}

// StaticLedger serves anchors whose merkle roots were recorded ahead of time.
type StaticLedger struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewStaticLedger(entries ...LedgerEntry) *StaticLedger {
	l := &StaticLedger{entries: make(map[string]string)}
	for _, e := range entries {
		l.Record(e.Chain, e.TransactionID, e.MerkleRoot)
	}
	return l
}

// LoadStaticLedger reads ledger entries from a YAML file:
//
//	transactions:
//	  - chain: bitcoin
//	    transactionId: 2378076e8e140012814e98a2b2cb1af07ec760b239c1d6d93ba54d658a010ecd
//	    merkleRoot: 3ff3ef0a4dd8d5dbcdbd0f3f8a6bf9e8d3bd6c7be6aba7c2e8f5e3a1b5c9d7e0
func LoadStaticLedger(path string) (*StaticLedger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapAnchorError(err, "failed to read ledger file")
	}

	var file ledgerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, WrapAnchorError(err, "failed to parse ledger file")
	}

	for i, e := range file.Transactions {
		if e.Chain == "" || e.TransactionID == "" || e.MerkleRoot == "" {
			return nil, NewAnchorError(fmt.Sprintf("ledger entry %d is incomplete", i))
		}
	}
	return NewStaticLedger(file.Transactions...), nil
}

// AppendLedgerEntry adds an entry to the YAML ledger file at path, creating the file when it does not exist.
func AppendLedgerEntry(path string, entry LedgerEntry) error {
	if entry.Chain == "" || entry.TransactionID == "" || entry.MerkleRoot == "" {
		return NewAnchorError("ledger entry is incomplete")
	}

	var file ledgerFile
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return WrapAnchorError(err, "failed to parse ledger file")
		}
	case !errors.Is(err, fs.ErrNotExist):
		return WrapAnchorError(err, "failed to read ledger file")
	}

	file.Transactions = append(file.Transactions, entry)
	out, err := yaml.Marshal(file)
	if err != nil {
		return WrapAnchorError(err, "failed to encode ledger file")
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return WrapAnchorError(err, "failed to write ledger file")
	}
	return nil
}

// Record adds or replaces an entry.
func (l *StaticLedger) Record(chain, transactionID, merkleRoot string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[ledgerKey(chain, transactionID)] = strings.ToLower(merkleRoot)
}

func (l *StaticLedger) MerkleRoot(ctx context.Context, anchor Anchor) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	root, ok := l.entries[ledgerKey(anchor.Chain, anchor.SourceID)]
	if !ok {
		return "", NewAnchorError(fmt.Sprintf("transaction %s not found on %s", anchor.SourceID, anchor.Chain))
	}
	return root, nil
}

func ledgerKey(chain, transactionID string) string {
	return strings.ToLower(chain) + "/" + strings.ToLower(transactionID)
}

// ChainRouter dispatches lookups to a TransactionLookup per chain code.
type ChainRouter struct {
	lookups  map[string]TransactionLookup
	fallback TransactionLookup
}

// NewChainRouter routes mocknet to MockChain and every other chain to fallback (which may be nil).
func NewChainRouter(fallback TransactionLookup) *ChainRouter {
	return &ChainRouter{
		lookups:  map[string]TransactionLookup{mocknetChain: MockChain{}},
		fallback: fallback,
	}
}

// Route registers the lookup for a chain.
func (r *ChainRouter) Route(chain string, lookup TransactionLookup) *ChainRouter {
	r.lookups[strings.ToLower(chain)] = lookup
	return r
}

func (r *ChainRouter) MerkleRoot(ctx context.Context, anchor Anchor) (string, error) {
	if lookup, ok := r.lookups[strings.ToLower(anchor.Chain)]; ok {
		return lookup.MerkleRoot(ctx, anchor)
	}
	if r.fallback != nil {
		return r.fallback.MerkleRoot(ctx, anchor)
	}
	return "", NewAnchorError(fmt.Sprintf("no transaction lookup configured for chain %s", anchor.Chain))
}
