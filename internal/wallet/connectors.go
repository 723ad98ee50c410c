package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

const (
	ConnectorAddress  = "address"
	ConnectorKeystore = "keystore"
)

// AddressConnector is a watch-only wallet for a fixed address.
type AddressConnector struct {
	address string
}

// NewAddressConnector creates a connector for address.
func NewAddressConnector(address string) *AddressConnector {
	return &AddressConnector{address: address}
}

func (c *AddressConnector) Name() string { return ConnectorAddress }

// Open validates the configured address and returns it checksummed.
func (c *AddressConnector) Open(context.Context) (string, error) {
	if c.address == "" {
		return "", fmt.Errorf("no wallet address configured")
	}
	if !common.IsHexAddress(c.address) {
		return "", fmt.Errorf("invalid wallet address %q", c.address)
	}
	return common.HexToAddress(c.address).Hex(), nil
}

// KeystoreConnector uses the first account of a keystore directory. The
// keystore is opened once and reused by later calls to Open.
type KeystoreConnector struct {
	dir string

	once sync.Once
	ks   *keystore.KeyStore
}

// NewKeystoreConnector creates a connector reading accounts from dir.
func NewKeystoreConnector(dir string) *KeystoreConnector {
	return &KeystoreConnector{dir: dir}
}

func (c *KeystoreConnector) Name() string { return ConnectorKeystore }

// Open returns the first account address found in the keystore.
func (c *KeystoreConnector) Open(context.Context) (string, error) {
	if c.dir == "" {
		return "", fmt.Errorf("no keystore directory configured")
	}

	accounts := c.open().Accounts()
	if len(accounts) == 0 {
		return "", fmt.Errorf("no accounts found in keystore %s", c.dir)
	}
	return accounts[0].Address.Hex(), nil
}

func (c *KeystoreConnector) open() *keystore.KeyStore {
	c.once.Do(func() {
		c.ks = keystore.NewKeyStore(c.dir, keystore.LightScryptN, keystore.LightScryptP)
	})
	return c.ks
}
