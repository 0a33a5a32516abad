package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/rpc"
)

// Starknet JSON-RPC error codes surfaced as sentinels.
const (
	codeContractNotFound = 20
)

// ErrContractNotFound is returned when the queried address holds no contract.
var ErrContractNotFound = errors.New("contract not found")

// pendingBlock is the block id nonces are read at, so queued transactions count.
const pendingBlock = "pending"

// FunctionCall is a read-only contract call.
type FunctionCall struct {
	ContractAddress    *felt.Felt   `json:"contract_address"`
	EntryPointSelector *felt.Felt   `json:"entry_point_selector"`
	Calldata           []*felt.Felt `json:"calldata"`
}

// DeployAccountTransaction is the broadcast form of an account deployment.
type DeployAccountTransaction struct {
	Type                string       `json:"type"`
	MaxFee              *felt.Felt   `json:"max_fee"`
	Version             *felt.Felt   `json:"version"`
	Signature           []*felt.Felt `json:"signature"`
	Nonce               *felt.Felt   `json:"nonce"`
	ContractAddressSalt *felt.Felt   `json:"contract_address_salt"`
	ConstructorCalldata []*felt.Felt `json:"constructor_calldata"`
	ClassHash           *felt.Felt   `json:"class_hash"`
}

// DeployAccountResult is the sequencer's acknowledgement of a deployment.
type DeployAccountResult struct {
	TransactionHash *felt.Felt `json:"transaction_hash"`
	ContractAddress *felt.Felt `json:"contract_address"`
}

// Client manages JSON-RPC connections to multiple Starknet networks.
// It never retries; callers decide what to do with a failed call.
type Client struct {
	networks map[string]*Network
	clients  map[string]*rpc.Client
	mu       sync.RWMutex
}

// NewClient creates a client preloaded with DefaultNetworks
func NewClient() *Client {
	return &Client{
		networks: DefaultNetworks(),
		clients:  make(map[string]*rpc.Client),
	}
}

// AddNetwork adds or overrides a network configuration
func (c *Client) AddNetwork(name string, network *Network) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networks[name] = network
	if rc, ok := c.clients[name]; ok {
		rc.Close()
		delete(c.clients, name)
	}
}

// GetNetwork returns the configuration for a network
func (c *Client) GetNetwork(name string) (*Network, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	network, ok := c.networks[name]
	if !ok {
		return nil, fmt.Errorf("unknown network: %s", name)
	}
	return network, nil
}

// ListNetworks returns all configured network names, sorted
func (c *Client) ListNetworks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.networks))
	for name := range c.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attach installs an already-connected RPC client for a network, skipping the dial.
func (c *Client) Attach(name string, rc *rpc.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.clients[name]; ok && old != rc {
		old.Close()
	}
	c.clients[name] = rc
}

// getClient returns an RPC client for the network, dialing one if needed.
// Acquires the write lock upfront so concurrent callers never dial twice.
func (c *Client) getClient(name string) (*rpc.Client, *Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	network, ok := c.networks[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown network: %s", name)
	}
	if rc, exists := c.clients[name]; exists {
		return rc, network, nil
	}

	var lastErr error = errors.New("no rpc urls configured")
	for _, url := range network.RPCURLs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rc, err := rpc.DialContext(ctx, url)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		// Verify chain ID
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		chainID, err := chainID(ctx, rc)
		cancel()
		if err != nil {
			rc.Close()
			lastErr = err
			continue
		}
		if !chainID.Equal(network.ChainID) {
			rc.Close()
			lastErr = fmt.Errorf("chain ID mismatch: expected %s, got %s", network.ChainID, chainID)
			continue
		}

		c.clients[name] = rc
		return rc, network, nil
	}

	return nil, nil, fmt.Errorf("failed to connect to %s: %w", name, lastErr)
}

func chainID(ctx context.Context, rc *rpc.Client) (*felt.Felt, error) {
	var id felt.Felt
	if err := rc.CallContext(ctx, &id, "starknet_chainId"); err != nil {
		return nil, err
	}
	return &id, nil
}

// ChainID queries the chain id reported by the network's node
func (c *Client) ChainID(ctx context.Context, name string) (*felt.Felt, error) {
	rc, _, err := c.getClient(name)
	if err != nil {
		return nil, err
	}
	return chainID(ctx, rc)
}

// GetNonce returns the pending nonce of a deployed account
func (c *Client) GetNonce(ctx context.Context, name string, address *felt.Felt) (uint64, error) {
	rc, _, err := c.getClient(name)
	if err != nil {
		return 0, err
	}

	var nonce felt.Felt
	if err := rc.CallContext(ctx, &nonce, "starknet_getNonce", pendingBlock, address); err != nil {
		return 0, mapError(err)
	}
	v := nonce.BigInt(new(big.Int))
	if !v.IsUint64() {
		return 0, fmt.Errorf("nonce %s out of range", nonce.String())
	}
	return v.Uint64(), nil
}

// Call executes a read-only contract call at the pending block
func (c *Client) Call(ctx context.Context, name string, call FunctionCall) ([]*felt.Felt, error) {
	rc, _, err := c.getClient(name)
	if err != nil {
		return nil, err
	}

	if call.Calldata == nil {
		call.Calldata = []*felt.Felt{}
	}
	var result []*felt.Felt
	if err := rc.CallContext(ctx, &result, "starknet_call", call, pendingBlock); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// AddDeployAccountTransaction broadcasts a signed account deployment
func (c *Client) AddDeployAccountTransaction(ctx context.Context, name string, tx *DeployAccountTransaction) (*DeployAccountResult, error) {
	rc, _, err := c.getClient(name)
	if err != nil {
		return nil, err
	}

	var result DeployAccountResult
	if err := rc.CallContext(ctx, &result, "starknet_addDeployAccountTransaction", tx); err != nil {
		return nil, mapError(err)
	}
	if result.TransactionHash == nil {
		return nil, errors.New("node returned no transaction hash")
	}
	return &result, nil
}

// Close closes all client connections
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rc := range c.clients {
		rc.Close()
	}
	c.clients = make(map[string]*rpc.Client)
}

func mapError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeContractNotFound {
		return fmt.Errorf("%w: %v", ErrContractNotFound, err)
	}
	return err
}

// Endpoint binds the client to one network.
type Endpoint struct {
	client  *Client
	network string
}

// Endpoint returns a view of the client fixed to a network name
func (c *Client) Endpoint(network string) *Endpoint {
	return &Endpoint{client: c, network: network}
}

// Nonce returns the pending nonce of address
func (e *Endpoint) Nonce(ctx context.Context, address *felt.Felt) (uint64, error) {
	return e.client.GetNonce(ctx, e.network, address)
}

// AddDeployAccountTransaction broadcasts tx on the bound network
func (e *Endpoint) AddDeployAccountTransaction(ctx context.Context, tx *DeployAccountTransaction) (*DeployAccountResult, error) {
	return e.client.AddDeployAccountTransaction(ctx, e.network, tx)
}
