package utils

/*
BIP-44 path: m / purpose' / coin_type' / account' / change / address_index

	purpose     44'  BIP-44
	coin_type   60'  Ethereum and EVM chains
	account     0'   first account
	change      0    external chain (receiving)
	index       0    every chat user gets exactly one address, always index 0

The index is fixed: deriving a different index for an existing user would
orphan funds already sent to the first address.
*/
const (
	ETH_DERIVATION_PATH_PREFIX = "m/44'/60'/0'/0/"
	ETH_DERIVATION_PATH        = ETH_DERIVATION_PATH_PREFIX + "0"

	// NativeDecimals is the number of fractional digits of the native coin.
	NativeDecimals = 18

	// NativeTokenAddress is how the custody API addresses the native coin.
	NativeTokenAddress = ""
)
