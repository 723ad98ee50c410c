package models

// NativeBalance is the native-token balance of a connected wallet.
// Value is the raw integer amount encoded as a decimal string.
type NativeBalance struct {
	Decimals  int    `json:"decimals"`
	Formatted string `json:"formatted"`
	Symbol    string `json:"symbol"`
	Value     string `json:"value"`
}

// WalletConnection mirrors the state reported by the wallet connector.
type WalletConnection struct {
	Address   string
	Connected bool
	Balance   *NativeBalance
}
