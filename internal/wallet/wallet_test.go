package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/coinfolio/internal/models"
)

const testAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

type fakeConnector struct {
	name    string
	address string
	err     error
}

func (f fakeConnector) Name() string { return f.name }

func (f fakeConnector) Open(context.Context) (string, error) { return f.address, f.err }

type fakeReader struct {
	wei *big.Int
	err error
	got common.Address
}

func (f *fakeReader) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.got = account
	return f.wei, f.err
}

func TestStoreConnectDisconnect(t *testing.T) {
	s := NewStore()
	assert.Equal(t, models.WalletConnection{}, s.State())

	s.Apply(Event{Kind: EventConnected, Address: testAddress})
	require.True(t, s.SetBalance(testAddress, &models.NativeBalance{Symbol: "ETH", Value: "1"}))

	state := s.State()
	assert.True(t, state.Connected)
	assert.Equal(t, testAddress, state.Address)
	require.NotNil(t, state.Balance)

	s.Apply(Event{Kind: EventDisconnected})
	assert.Equal(t, models.WalletConnection{}, s.State(), "address, flag and balance clear together")
}

func TestStoreIgnoresBalanceForOtherAddress(t *testing.T) {
	s := NewStore()
	assert.False(t, s.SetBalance(testAddress, &models.NativeBalance{}), "not connected")

	s.Apply(Event{Kind: EventConnected, Address: testAddress})
	assert.False(t, s.SetBalance("0x0000000000000000000000000000000000000001", &models.NativeBalance{}))
	assert.Nil(t, s.State().Balance)

	assert.True(t, s.SetBalance(testAddress, &models.NativeBalance{Value: "5"}))
	assert.True(t, s.SetBalance(testAddress, nil))
	assert.Nil(t, s.State().Balance, "unavailable balance clears")
}

func TestStoreReconnectToOtherAddressDropsBalance(t *testing.T) {
	s := NewStore()
	s.Apply(Event{Kind: EventConnected, Address: testAddress})
	s.SetBalance(testAddress, &models.NativeBalance{Value: "5"})

	s.Apply(Event{Kind: EventConnected, Address: "0x0000000000000000000000000000000000000001"})

	assert.Nil(t, s.State().Balance)
}

func TestManagerConnectEmitsEvent(t *testing.T) {
	m := NewManager(fakeConnector{name: "fake", address: testAddress})
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, "fake"))
	ev := <-m.Events()
	assert.Equal(t, Event{Kind: EventConnected, Address: testAddress, Connector: "fake"}, ev)

	addr, ok := m.Current()
	assert.True(t, ok)
	assert.Equal(t, testAddress, addr)

	require.NoError(t, m.Disconnect(ctx))
	ev = <-m.Events()
	assert.Equal(t, EventDisconnected, ev.Kind)
	assert.ErrorIs(t, m.Disconnect(ctx), ErrNotConnected)
}

func TestManagerUnknownConnector(t *testing.T) {
	m := NewManager(fakeConnector{name: "fake", address: testAddress})

	err := m.Connect(context.Background(), "walletconnect")

	assert.ErrorIs(t, err, ErrConnectorUnavailable)
	_, ok := m.Current()
	assert.False(t, ok)
	assert.Empty(t, m.Events())
}

func TestManagerConnectorFailure(t *testing.T) {
	m := NewManager(fakeConnector{name: "fake", err: errors.New("locked")})

	assert.Error(t, m.Connect(context.Background(), "fake"))
	assert.Empty(t, m.Events())
}

func TestManagerChoicesSorted(t *testing.T) {
	m := NewManager(NewKeystoreConnector(""), NewAddressConnector(""))
	assert.Equal(t, []string{ConnectorAddress, ConnectorKeystore}, m.Choices())
}

func TestAddressConnector(t *testing.T) {
	addr, err := NewAddressConnector("0x52908400098527886e0f7030069857d2e4169ee7").Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr, "checksummed")

	_, err = NewAddressConnector("not-an-address").Open(context.Background())
	assert.Error(t, err)
	_, err = NewAddressConnector("").Open(context.Background())
	assert.Error(t, err)
}

func TestKeystoreConnectorEmptyDir(t *testing.T) {
	_, err := NewKeystoreConnector(t.TempDir()).Open(context.Background())
	assert.Error(t, err)
}

func TestKeystoreConnectorReusesKeystore(t *testing.T) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.NewAccount("secret")
	require.NoError(t, err)

	c := NewKeystoreConnector(dir)
	first, err := c.Open(context.Background())
	require.NoError(t, err)
	opened := c.open()

	second, err := c.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, account.Address.Hex(), first)
	assert.Equal(t, first, second)
	assert.Same(t, opened, c.open())
}

func TestEthBalance(t *testing.T) {
	wei, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	reader := &fakeReader{wei: wei}

	balance, err := NewEthBalance(reader).NativeBalance(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(testAddress), reader.got)
	assert.Equal(t, "123456789012345678901234567890", balance.Value, "raw value keeps full precision")
	assert.Equal(t, "123456789012.34567890123456789", balance.Formatted)
	assert.Equal(t, 18, balance.Decimals)
	assert.Equal(t, "ETH", balance.Symbol)
}

func TestEthBalanceErrors(t *testing.T) {
	_, err := NewEthBalance(&fakeReader{}).NativeBalance(context.Background(), "nope")
	assert.Error(t, err)

	_, err = NewEthBalance(&fakeReader{err: errors.New("rpc down")}).NativeBalance(context.Background(), testAddress)
	assert.Error(t, err)
}

func TestFormatNative(t *testing.T) {
	assert.Equal(t, "1.5", FormatNative(big.NewInt(1_500_000_000_000_000_000), 18, "ETH").Formatted)
	assert.Equal(t, "0", FormatNative(nil, 18, "ETH").Formatted)
	assert.Equal(t, "42", FormatNative(big.NewInt(42), 0, "XLM").Formatted)
}
