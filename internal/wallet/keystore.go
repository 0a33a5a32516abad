package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// DefaultAccountDir holds one accounts file for all networks plus encrypted key files.
const DefaultAccountDir = "~/.starknet_accounts"

const (
	accountsFileName = "starknet_accounts.json"
	keystoreDirName  = "keystore"
	filePerms        = 0600 // Owner read/write only
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrKeyNotFound     = errors.New("no key material for account")
	ErrInvalidName     = errors.New("invalid account name")
)

// Identity is the persisted, non-secret part of an account.
type Identity struct {
	Name         string     `json:"name"`
	Flavor       Flavor     `json:"flavor"`
	ClassHash    *felt.Felt `json:"class_hash,omitempty"`
	Salt         *felt.Felt `json:"salt,omitempty"`
	Address      *felt.Felt `json:"address,omitempty"`
	Deployed     bool       `json:"deployed"`
	DeployTxHash *felt.Felt `json:"deploy_tx_hash,omitempty"`
	CreatedAt    int64      `json:"created_at"`
}

// Clone returns a copy that shares nothing with id.
func (id *Identity) Clone() *Identity {
	c := *id
	c.ClassHash = cloneFelt(id.ClassHash)
	c.Salt = cloneFelt(id.Salt)
	c.Address = cloneFelt(id.Address)
	c.DeployTxHash = cloneFelt(id.DeployTxHash)
	return &c
}

func cloneFelt(f *felt.Felt) *felt.Felt {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// accountsFile is the structure of starknet_accounts.json, keyed by network then name.
type accountsFile struct {
	Version  int                             `json:"version"`
	Networks map[string]map[string]*Identity `json:"networks"`
}

// Keyring stores identities and their encrypted keys under one account directory.
type Keyring struct {
	mu       sync.RWMutex
	dir      string
	password string
	scryptN  int
	scryptP  int
	data     *accountsFile
}

// KeyringOption configures a Keyring
type KeyringOption func(*Keyring)

// WithLightScrypt trades key-file strength for speed. Meant for tests and devnets.
func WithLightScrypt() KeyringOption {
	return func(k *Keyring) {
		k.scryptN = keystore.LightScryptN
		k.scryptP = keystore.LightScryptP
	}
}

// ExpandDir resolves a leading "~" to the user's home directory.
func ExpandDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
	}
	return dir, nil
}

// NewKeyring opens (creating if needed) the account directory. password
// encrypts and decrypts key files.
func NewKeyring(dir, password string, opts ...KeyringOption) (*Keyring, error) {
	dir, err := ExpandDir(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, keystoreDirName), 0700); err != nil {
		return nil, fmt.Errorf("failed to create account directory: %w", err)
	}

	k := &Keyring{
		dir:      dir,
		password: password,
		scryptN:  keystore.StandardScryptN,
		scryptP:  keystore.StandardScryptP,
		data: &accountsFile{
			Version:  1,
			Networks: make(map[string]map[string]*Identity),
		},
	}
	for _, opt := range opts {
		opt(k)
	}

	if err := k.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return k, nil
}

// Dir returns the resolved account directory
func (k *Keyring) Dir() string {
	return k.dir
}

func (k *Keyring) accountsPath() string {
	return filepath.Join(k.dir, accountsFileName)
}

func (k *Keyring) keyPath(network, name string) string {
	return filepath.Join(k.dir, keystoreDirName, network, name+".json")
}

func (k *Keyring) load() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	raw, err := os.ReadFile(k.accountsPath())
	if err != nil {
		return err
	}

	var data accountsFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse %s: %w", accountsFileName, err)
	}
	if data.Networks == nil {
		data.Networks = make(map[string]map[string]*Identity)
	}
	k.data = &data
	return nil
}

// save writes the accounts file. Caller must hold the write lock.
func (k *Keyring) save() error {
	raw, err := json.MarshalIndent(k.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	tmp := k.accountsPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, filePerms); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}
	return os.Rename(tmp, k.accountsPath())
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Create records a new identity and generates its key.
func (k *Keyring) Create(network, name string, flavor Flavor, classHash *felt.Felt) (*Identity, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, err := k.Lookup(network, name); err == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrAccountExists, name, network)
	}

	key, err := GenerateKey(flavor)
	if err != nil {
		return nil, err
	}
	if err := k.PutKey(network, name, key); err != nil {
		return nil, err
	}

	id := &Identity{
		Name:      name,
		Flavor:    flavor,
		ClassHash: classHash,
		CreatedAt: time.Now().Unix(),
	}
	if err := k.Save(network, id); err != nil {
		return nil, err
	}
	return id.Clone(), nil
}

// Lookup returns a copy of the named identity on network.
func (k *Keyring) Lookup(network, name string) (*Identity, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	id, ok := k.data.Networks[network][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrAccountNotFound, name, network)
	}
	return id.Clone(), nil
}

// List returns every identity on network sorted by name.
func (k *Keyring) List(network string) []*Identity {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ids := make([]*Identity, 0, len(k.data.Networks[network]))
	for _, id := range k.data.Networks[network] {
		ids = append(ids, id.Clone())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
	return ids
}

// Save inserts or replaces an identity and persists the accounts file.
func (k *Keyring) Save(network string, id *Identity) error {
	if err := validateName(id.Name); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.data.Networks[network] == nil {
		k.data.Networks[network] = make(map[string]*Identity)
	}
	k.data.Networks[network][id.Name] = id.Clone()
	return k.save()
}

// PutKey encrypts key with the keyring password and writes it for (network, name).
func (k *Keyring) PutKey(network, name string, key []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	cj, err := keystore.EncryptDataV3(key, []byte(k.password), k.scryptN, k.scryptP)
	if err != nil {
		return fmt.Errorf("failed to encrypt key: %w", err)
	}
	raw, err := json.Marshal(cj)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	path := k.keyPath(network, name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}
	return os.WriteFile(path, raw, filePerms)
}

// Key decrypts the key for (network, name).
func (k *Keyring) Key(network, name string) ([]byte, error) {
	raw, err := os.ReadFile(k.keyPath(network, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s on %s", ErrKeyNotFound, name, network)
		}
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	var cj keystore.CryptoJSON
	if err := json.Unmarshal(raw, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	key, err := keystore.DecryptDataV3(cj, k.password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return key, nil
}
