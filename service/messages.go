package service

import (
	"fmt"
	"strings"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
)

const (
	MsgNoWallet          = "You don't have a wallet yet. Request a deposit address first."
	MsgAskAmount         = "How much do you want to withdraw? Reply with the amount."
	MsgInvalidAmount     = "That is not a valid amount. Reply with a positive number, e.g. 0.25."
	MsgTooManyDecimals   = "That amount has more than 18 decimal places. Reply with a valid amount."
	MsgInvalidAddress    = "That is not a valid address. The withdrawal was cancelled, start again when ready."
	MsgWithdrawFailed    = "The withdrawal failed. Nothing was sent, please try again later."
	MsgBroadcastRejected = "The network rejected the withdrawal: %s"
	MsgCancelled         = "Withdrawal cancelled."
	MsgNothingToCancel   = "There is no withdrawal in progress."
	MsgTryLater          = "Something went wrong, please try again later."
)

func msgAskDestination(amount string) string {
	return fmt.Sprintf("Withdrawing %s. Reply with the destination address.", amount)
}

func msgWithdrawSucceeded(amount, to, orderID string) string {
	return fmt.Sprintf("Withdrawal of %s to %s submitted. Order id: %s", amount, to, orderID)
}

func msgAddress(address string) string {
	return fmt.Sprintf("Your deposit address:\n%s", address)
}

func msgExportKey(key string) string {
	return fmt.Sprintf("Your private key. Anyone holding it controls your funds:\n%s", key)
}

func msgBalance(address string, assets []entity.TokenAsset) string {
	if len(assets) == 0 {
		return fmt.Sprintf("Address %s\nBalance: 0", address)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Address %s", address)
	for _, a := range assets {
		fmt.Fprintf(&b, "\n%s %s", a.Balance, a.Symbol)
		if a.TokenPrice != "" {
			fmt.Fprintf(&b, " (price %s USD)", a.TokenPrice)
		}
	}
	return b.String()
}
