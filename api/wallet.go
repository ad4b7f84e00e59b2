package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	"github.com/linlinbupt123-crypto/wallet_bot/request"
	"github.com/linlinbupt123-crypto/wallet_bot/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// WithdrawalHistory reads the withdrawal journal.
type WithdrawalHistory interface {
	ListByUserID(ctx context.Context, userID string, limit int64) ([]*entity.WithdrawalRecord, error)
}

type WalletHandler struct {
	walletService     *service.WalletService
	withdrawalService *service.WithdrawalService
	outbox            *Outbox
	history           WithdrawalHistory // nil when the journal is off
}

func NewWalletHandler(ws *service.WalletService, wd *service.WithdrawalService, outbox *Outbox, history WithdrawalHistory) *WalletHandler {
	return &WalletHandler{walletService: ws, withdrawalService: wd, outbox: outbox, history: history}
}

// CreateAddress, get or create the user's deposit address
func (h *WalletHandler) CreateAddress(c *gin.Context) {
	userID := c.Param("userID")
	addr, err := h.walletService.Address(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":  addr,
		"messages": h.outbox.Drain(userID),
	})
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.Param("userID")
	assets, err := h.walletService.Balance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assets":   assets,
		"messages": h.outbox.Drain(userID),
	})
}

// RequestWithdrawal, start a withdrawal; the reply prompts for the amount
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID := c.Param("userID")
	if err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), userID); err != nil {
		h.fail(c, userID, err)
		return
	}
	h.reply(c, userID)
}

// PostMessage, free-text reply to the pending prompt
func (h *WalletHandler) PostMessage(c *gin.Context) {
	userID := c.Param("userID")
	var req request.MessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handled, err := h.withdrawalService.HandleText(c.Request.Context(), userID, req.ReplyTo, req.Text)
	if err != nil {
		h.fail(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"handled":  handled,
		"messages": h.outbox.Drain(userID),
	})
}

func (h *WalletHandler) CancelWithdrawal(c *gin.Context) {
	userID := c.Param("userID")
	if err := h.withdrawalService.Cancel(c.Request.Context(), userID); err != nil {
		h.fail(c, userID, err)
		return
	}
	h.reply(c, userID)
}

// ExportKey, the key goes only into this user's own messages
func (h *WalletHandler) ExportKey(c *gin.Context) {
	userID := c.Param("userID")
	if err := h.walletService.ExportKey(c.Request.Context(), userID); err != nil {
		h.fail(c, userID, err)
		return
	}
	h.reply(c, userID)
}

// ListWithdrawals, finished attempts of the user, newest first
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	userID := c.Param("userID")
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal journal is disabled"})
		return
	}

	limit := int64(defaultHistoryLimit)
	if q := c.Query("limit"); q != "" {
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := h.history.ListByUserID(c.Request.Context(), userID, limit)
	if err != nil {
		log.WithUser(log.API, userID).Error().Err(err).Msg("list withdrawals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": wrapErrors.KindInternal.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": recs})
}

func (h *WalletHandler) reply(c *gin.Context, userID string) {
	c.JSON(http.StatusOK, gin.H{"messages": h.outbox.Drain(userID)})
}

// fail answers with the messages already queued for the user. The error
// detail stays in the logs.
func (h *WalletHandler) fail(c *gin.Context, userID string, err error) {
	kind := wrapErrors.KindOf(err)
	log.WithUser(log.API, userID).Debug().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(statusOf(err), gin.H{
		"error":    kind.String(),
		"messages": h.outbox.Drain(userID),
	})
}

func statusOf(err error) int {
	if code, ok := wrapErrors.CodeOf(err); ok && code == wrapErrors.NoWallet {
		return http.StatusNotFound
	}
	switch wrapErrors.KindOf(err) {
	case wrapErrors.KindValidation:
		return http.StatusBadRequest
	case wrapErrors.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
