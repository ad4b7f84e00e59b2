package errors

type Code string

const (
	InvalidAmount      Code = "INVALID_AMOUNT"
	InvalidDestination Code = "INVALID_DESTINATION"
	NoWallet           Code = "NO_WALLET"
	KeyDerivation      Code = "KEY_DERIVATION_ERROR"
	SignerErr          Code = "SIGNER_ERROR"
	SignInfoErr        Code = "SIGN_INFO_ERROR"
	SendTxErr          Code = "SEND_TX_ERROR"
	BalanceErr         Code = "BALANCE_ERROR"
	SessionStoreErr    Code = "SESSION_STORE_ERROR"
)

// Kind groups codes into the classes the withdrawal flow reacts to.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindRemote
	KindSigning
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindSigning:
		return "signing"
	default:
		return "internal"
	}
}

func (c Code) Kind() Kind {
	switch c {
	case InvalidAmount, InvalidDestination, NoWallet:
		return KindValidation
	case SignInfoErr, SendTxErr, BalanceErr:
		return KindRemote
	case SignerErr, KeyDerivation:
		return KindSigning
	default:
		return KindInternal
	}
}
