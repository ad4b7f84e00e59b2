package custody

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/utils"
)

const (
	PathTokenBalances = "/api/v5/wallet/asset/token-balances-by-address"
	PathSignInfo      = "/api/v5/wallet/pre-transaction/sign-info"
	PathBroadcast     = "/api/v5/wallet/pre-transaction/broadcast-transaction"
)

type tokenAddressReq struct {
	ChainIndex   string `json:"chainIndex"`
	TokenAddress string `json:"tokenAddress"`
}

type balanceReq struct {
	Address        string            `json:"address"`
	TokenAddresses []tokenAddressReq `json:"tokenAddresses"`
}

type balanceData struct {
	TokenAssets []struct {
		ChainIndex   numString `json:"chainIndex"`
		TokenAddress string    `json:"tokenAddress"`
		Symbol       string    `json:"symbol"`
		Balance      numString `json:"balance"`
		TokenPrice   numString `json:"tokenPrice"`
	} `json:"tokenAssets"`
}

// TokenBalances returns the native-coin balance of address on chainIndex.
func (c *Client) TokenBalances(ctx context.Context, address, chainIndex string) ([]entity.TokenAsset, error) {
	req := balanceReq{
		Address:        address,
		TokenAddresses: []tokenAddressReq{{ChainIndex: chainIndex, TokenAddress: utils.NativeTokenAddress}},
	}
	var data []balanceData
	if err := c.Post(ctx, PathTokenBalances, req, &data); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.BalanceErr, "TokenBalances", err)
	}

	var out []entity.TokenAsset
	for _, d := range data {
		for _, a := range d.TokenAssets {
			out = append(out, entity.TokenAsset{
				ChainIndex:   string(a.ChainIndex),
				TokenAddress: a.TokenAddress,
				Symbol:       a.Symbol,
				Balance:      string(a.Balance),
				TokenPrice:   string(a.TokenPrice),
			})
		}
	}
	return out, nil
}

// SignInfoRequest asks for the parameters needed to sign a transfer.
// TxAmount is in base units.
type SignInfoRequest struct {
	ChainIndex string `json:"chainIndex"`
	FromAddr   string `json:"fromAddr"`
	ToAddr     string `json:"toAddr"`
	TxAmount   string `json:"txAmount"`
}

type signInfoData struct {
	Nonce    numString `json:"nonce"`
	GasPrice struct {
		Normal numString `json:"normal"`
	} `json:"gasPrice"`
	GasLimit numString `json:"gasLimit"`
}

// SignInfo fetches nonce, the "normal" gas price tier and the gas limit.
func (c *Client) SignInfo(ctx context.Context, req SignInfoRequest) (*entity.SignInfo, error) {
	var data []signInfoData
	if err := c.Post(ctx, PathSignInfo, req, &data); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.SignInfoErr, "SignInfo", err)
	}
	if len(data) == 0 {
		return nil, wrapErrors.WrapWithCode(wrapErrors.SignInfoErr, "SignInfo", &APIError{Path: PathSignInfo, Code: SuccessCode, Msg: "empty data"})
	}

	info, err := parseSignInfo(data[0])
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.SignInfoErr, "parseSignInfo", err)
	}
	return info, nil
}

func parseSignInfo(d signInfoData) (*entity.SignInfo, error) {
	nonce, err := strconv.ParseUint(string(d.Nonce), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("nonce %q: %w", d.Nonce, err)
	}
	gasPrice, ok := new(big.Int).SetString(string(d.GasPrice.Normal), 10)
	if !ok || gasPrice.Sign() < 0 {
		return nil, fmt.Errorf("gas price %q is not a base-unit integer", d.GasPrice.Normal)
	}
	gasLimit, err := strconv.ParseUint(string(d.GasLimit), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gas limit %q: %w", d.GasLimit, err)
	}
	return &entity.SignInfo{Nonce: nonce, GasPrice: gasPrice, GasLimit: gasLimit}, nil
}

type broadcastReq struct {
	SignedTx   string `json:"signedTx"`
	ChainIndex string `json:"chainIndex"`
	Address    string `json:"address"`
}

type broadcastData struct {
	OrderID numString `json:"orderId"`
}

// Broadcast submits a signed transaction and returns the order id.
func (c *Client) Broadcast(ctx context.Context, signedTx, chainIndex, address string) (string, error) {
	req := broadcastReq{SignedTx: signedTx, ChainIndex: chainIndex, Address: address}
	var data []broadcastData
	if err := c.Post(ctx, PathBroadcast, req, &data); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SendTxErr, "Broadcast", err)
	}
	if len(data) == 0 || strings.TrimSpace(string(data[0].OrderID)) == "" {
		return "", wrapErrors.WrapWithCode(wrapErrors.SendTxErr, "Broadcast", &APIError{Path: PathBroadcast, Code: SuccessCode, Msg: "missing order id"})
	}
	return string(data[0].OrderID), nil
}
