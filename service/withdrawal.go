package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linlinbupt123-crypto/wallet_bot/custody"
	"github.com/linlinbupt123-crypto/wallet_bot/domain"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
	"github.com/linlinbupt123-crypto/wallet_bot/repository"
	"github.com/linlinbupt123-crypto/wallet_bot/utils"
)

// Failure stages reported in outcomes.
const (
	StageDestination = "destination"
	StageSignInfo    = "sign_info"
	StageSign        = "sign"
	StageBroadcast   = "broadcast"
)

type ChainParams struct {
	Index   string   // chain identifier sent to the custody API
	ChainID *big.Int // EIP-155 chain id used for signing
}

// WithdrawalService drives the withdraw conversation:
//
//	Idle -> AmountRequested -> AmountCaptured -> DestinationCaptured -> Idle
//
// Every step for a user runs under that user's lock, including both network
// round-trips, so a second trigger for the same user waits for the first.
type WithdrawalService struct {
	sessions  repository.SessionRepository
	keys      *domain.KeyManager
	api       WalletAPI
	notifier  Notifier
	listeners []OutcomeListener
	chain     ChainParams
	locks     *userLocks

	newPromptID func() string
	now         func() time.Time
}

func NewWithdrawalService(
	sessions repository.SessionRepository,
	keys *domain.KeyManager,
	api WalletAPI,
	notifier Notifier,
	chain ChainParams,
	listeners ...OutcomeListener,
) *WithdrawalService {
	return &WithdrawalService{
		sessions:    sessions,
		keys:        keys,
		api:         api,
		notifier:    notifier,
		listeners:   listeners,
		chain:       chain,
		locks:       newUserLocks(),
		newPromptID: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

// RequestWithdrawal starts an attempt and asks for the amount. A pending
// attempt is replaced silently: the last intent wins.
func (w *WithdrawalService) RequestWithdrawal(ctx context.Context, userID string) error {
	unlock := w.locks.Lock(userID)
	defer unlock()

	s, err := w.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) || (err == nil && !s.HasWallet()) {
		return w.notifier.Notify(ctx, userID, MsgNoWallet)
	}
	if err != nil {
		return w.internalError(ctx, userID, "get session", err)
	}

	if prev := s.State(); prev.Stage() != entity.StageIdle {
		log.WithUser(log.Service, userID).Info().Str("previous", prev.Stage().String()).Msg("withdrawal request replaces pending attempt")
	}

	promptID := w.newPromptID()
	ref, err := w.notifier.Prompt(ctx, userID, Prompt{ID: promptID, Kind: InputAmount, Text: MsgAskAmount})
	if err != nil {
		return err
	}
	s.Withdrawal = entity.AmountRequested{PromptID: promptID}
	s.LastMessageRef = ref
	if err := w.sessions.Update(ctx, s); err != nil {
		return w.internalError(ctx, userID, "update session", err)
	}

	log.WithUser(log.Service, userID).Debug().Str("prompt_id", promptID).Msg("amount requested")
	return nil
}

// HandleText routes a free-text reply to the input the session currently
// expects. It reports false when the text was not consumed: no withdrawal
// pending, or replyTo names a prompt that is no longer current.
func (w *WithdrawalService) HandleText(ctx context.Context, userID, replyTo, text string) (bool, error) {
	unlock := w.locks.Lock(userID)
	defer unlock()

	s, err := w.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, w.internalError(ctx, userID, "get session", err)
	}

	st := s.State()
	expected := entity.PromptID(st)
	if expected == "" {
		return false, nil
	}
	if replyTo != "" && replyTo != expected {
		log.WithUser(log.Service, userID).Debug().Str("reply_to", replyTo).Str("expected", expected).Msg("stale reply ignored")
		return false, nil
	}

	switch v := st.(type) {
	case entity.AmountRequested:
		return true, w.captureAmount(ctx, s, text)
	case entity.AmountCaptured:
		return true, w.captureDestination(ctx, s, v, text)
	}
	return false, nil
}

// Cancel abandons a pending attempt. An in-flight attempt cannot be observed
// here because it holds the user's lock until it finishes.
func (w *WithdrawalService) Cancel(ctx context.Context, userID string) error {
	unlock := w.locks.Lock(userID)
	defer unlock()

	s, err := w.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) || (err == nil && s.State().Stage() == entity.StageIdle) {
		return w.notifier.Notify(ctx, userID, MsgNothingToCancel)
	}
	if err != nil {
		return w.internalError(ctx, userID, "get session", err)
	}
	if err := w.sessions.ClearWithdrawal(ctx, userID); err != nil {
		return w.internalError(ctx, userID, "clear withdrawal", err)
	}
	log.WithUser(log.Service, userID).Info().Str("stage", s.State().Stage().String()).Msg("withdrawal cancelled")
	return w.notifier.Notify(ctx, userID, MsgCancelled)
}

// State returns the user's current withdrawal state.
func (w *WithdrawalService) State(ctx context.Context, userID string) (entity.WithdrawalState, error) {
	s, err := w.sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return entity.Idle{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.State(), nil
}

// captureAmount keeps the session untouched on bad input so the same prompt
// can be answered again.
func (w *WithdrawalService) captureAmount(ctx context.Context, s *entity.UserSession, text string) error {
	amount, err := utils.ParsePositiveAmount(text)
	if err != nil {
		log.WithUser(log.Service, s.UserID).Debug().Err(wrapErrors.WrapWithCode(wrapErrors.InvalidAmount, "captureAmount", err)).Msg("amount rejected")
		msg := MsgInvalidAmount
		if errors.Is(err, utils.ErrTooManyDecimals) {
			msg = MsgTooManyDecimals
		}
		return w.notifier.Notify(ctx, s.UserID, msg)
	}

	// The amount is stored before the destination prompt goes out, so a user
	// never sees that prompt while the session still expects an amount.
	prev := s.Withdrawal
	promptID := w.newPromptID()
	s.Withdrawal = entity.AmountCaptured{Amount: amount, PromptID: promptID}
	if err := w.sessions.Update(ctx, s); err != nil {
		return w.internalError(ctx, s.UserID, "update session", err)
	}

	ref, err := w.notifier.Prompt(ctx, s.UserID, Prompt{
		ID:   promptID,
		Kind: InputDestination,
		Text: msgAskDestination(utils.WeiToETH(amount)),
	})
	if err != nil {
		// the amount prompt is still the last one the user saw
		s.Withdrawal = prev
		if uerr := w.sessions.Update(ctx, s); uerr != nil {
			log.WithUser(log.Service, s.UserID).Error().Err(uerr).Msg("restore amount request")
		}
		return err
	}
	s.LastMessageRef = ref
	if err := w.sessions.Update(ctx, s); err != nil {
		log.WithUser(log.Service, s.UserID).Warn().Err(err).Msg("record prompt reference")
	}

	log.WithUser(log.Service, s.UserID).Debug().Str("amount_wei", amount.String()).Msg("amount captured")
	return nil
}

// captureDestination validates the address and, when valid, signs and
// broadcasts. An invalid address ends the attempt instead of re-prompting so
// a stale amount is never carried into a later retry.
func (w *WithdrawalService) captureDestination(ctx context.Context, s *entity.UserSession, st entity.AmountCaptured, text string) error {
	dest := strings.TrimSpace(text)
	outcome := entity.WithdrawalOutcome{
		UserID:    s.UserID,
		From:      s.Address,
		To:        dest,
		Amount:    utils.WeiToETH(st.Amount),
		AmountWei: st.Amount.String(),
	}

	if !w.keys.ValidateAddress(dest) {
		if err := w.sessions.ClearWithdrawal(ctx, s.UserID); err != nil {
			return w.internalError(ctx, s.UserID, "clear withdrawal", err)
		}
		w.finish(ctx, outcome, "", StageDestination, wrapErrors.WrapWithCode(wrapErrors.InvalidDestination, "ValidateAddress", errors.New("malformed address")))
		return w.notifier.Notify(ctx, s.UserID, MsgInvalidAddress)
	}

	s.Withdrawal = entity.DestinationCaptured{Amount: st.Amount, Destination: dest}
	if err := w.sessions.Update(ctx, s); err != nil {
		return w.internalError(ctx, s.UserID, "update session", err)
	}

	// Once signing starts the attempt runs to completion even if the caller
	// goes away; a broadcast cannot be taken back.
	ctx = context.WithoutCancel(ctx)
	orderID, stage, err := w.execute(ctx, s, st.Amount, dest)

	if cerr := w.sessions.ClearWithdrawal(ctx, s.UserID); cerr != nil {
		log.WithUser(log.Service, s.UserID).Error().Err(cerr).Msg("clear withdrawal after terminal state")
	}
	w.finish(ctx, outcome, orderID, stage, err)

	if err != nil {
		return w.notifier.Notify(ctx, s.UserID, failureMessage(err))
	}
	return w.notifier.Notify(ctx, s.UserID, msgWithdrawSucceeded(outcome.Amount, dest, orderID))
}

// execute runs sign-info, local signing and broadcast in order. Each step
// starts only after the previous one succeeded; on error it reports the stage
// that failed.
func (w *WithdrawalService) execute(ctx context.Context, s *entity.UserSession, amount *big.Int, dest string) (string, string, error) {
	info, err := w.api.SignInfo(ctx, custody.SignInfoRequest{
		ChainIndex: w.chain.Index,
		FromAddr:   s.Address,
		ToAddr:     dest,
		TxAmount:   amount.String(),
	})
	if err != nil {
		return "", StageSignInfo, err
	}

	signedTx, err := w.keys.Sign(s.PrivateKey, w.chain.ChainID, entity.TransactionIntent{
		Destination: dest,
		Amount:      amount,
		Nonce:       info.Nonce,
		GasPrice:    info.GasPrice,
		GasLimit:    info.GasLimit,
	})
	if err != nil {
		return "", StageSign, err
	}

	orderID, err := w.api.Broadcast(ctx, signedTx, w.chain.Index, s.Address)
	if err != nil {
		return "", StageBroadcast, err
	}
	return orderID, "", nil
}

func (w *WithdrawalService) finish(ctx context.Context, o entity.WithdrawalOutcome, orderID, stage string, err error) {
	o.FinishedAt = w.now()
	logger := log.WithUser(log.Service, o.UserID)
	if err != nil {
		o.Status = entity.OutcomeFailure
		o.Stage = stage
		o.Reason = err.Error()
		ev := logger.Error()
		if wrapErrors.KindOf(err) == wrapErrors.KindValidation {
			ev = logger.Info()
		}
		ev.Err(err).
			Str("stage", stage).
			Str("kind", wrapErrors.KindOf(err).String()).
			Str("to", o.To).
			Str("amount_wei", o.AmountWei).
			Msg("withdrawal failed")
	} else {
		o.Status = entity.OutcomeSuccess
		o.OrderID = orderID
		logger.Info().
			Str("order_id", orderID).
			Str("to", o.To).
			Str("amount_wei", o.AmountWei).
			Msg("withdrawal broadcast")
	}
	for _, l := range w.listeners {
		l.OnWithdrawalOutcome(ctx, o)
	}
}

// failureMessage surfaces the remote message only for a rejected broadcast;
// every other failure gets the generic text.
func failureMessage(err error) string {
	code, _ := wrapErrors.CodeOf(err)
	var apiErr *custody.APIError
	if code == wrapErrors.SendTxErr && errors.As(err, &apiErr) && apiErr.Code != "" && apiErr.Code != custody.SuccessCode && apiErr.Msg != "" {
		return fmt.Sprintf(MsgBroadcastRejected, apiErr.Msg)
	}
	return MsgWithdrawFailed
}

func (w *WithdrawalService) internalError(ctx context.Context, userID, op string, err error) error {
	log.WithUser(log.Service, userID).Error().Err(err).Str("op", op).Msg("session store")
	if nerr := w.notifier.Notify(ctx, userID, MsgTryLater); nerr != nil {
		return nerr
	}
	return wrapErrors.WrapWithCode(wrapErrors.SessionStoreErr, op, err)
}
