package main

import (
	"context"
	"time"

	"github.com/linlinbupt123-crypto/wallet_bot/api"
	"github.com/linlinbupt123-crypto/wallet_bot/config"
	"github.com/linlinbupt123-crypto/wallet_bot/custody"
	"github.com/linlinbupt123-crypto/wallet_bot/db"
	"github.com/linlinbupt123-crypto/wallet_bot/domain"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
	"github.com/linlinbupt123-crypto/wallet_bot/repository"
	"github.com/linlinbupt123-crypto/wallet_bot/service"
)

func main() {
	// 1. 配置和日志
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("load config")
	}
	log.Init(cfg.Log.Level, cfg.Log.JSON)
	if err := cfg.Validate(); err != nil {
		log.Logger.Fatal().Err(err).Msg("invalid config")
	}
	chainID, err := cfg.Chain.ChainID()
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("invalid chain index")
	}

	// 2. MongoDB 提现流水 (可选)
	var (
		listeners []service.OutcomeListener
		history   api.WithdrawalHistory
	)
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoRepo, err := db.NewMongoRepo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		cancel()
		if err != nil {
			log.Logger.Fatal().Err(err).Msg("connect mongo")
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				log.Storage.Error().Err(err).Msg("disconnect mongo")
			}
		}()
		journal := repository.NewWithdrawalRepo(mongoRepo.WithdrawalColl)
		listeners = append(listeners, journal)
		history = journal
		log.Storage.Info().Str("database", cfg.Mongo.Database).Msg("withdrawal journal enabled")
	}

	// 3. 初始化依赖
	sessions := repository.NewMemorySessionRepo()
	keys := domain.NewKeyManager(sessions, cfg.Chain.DerivationPath)
	client := custody.New(cfg.Custody)
	outbox := api.NewOutbox()

	walletService := service.NewWalletService(sessions, keys, client, outbox, cfg.Chain.Index)
	withdrawalService := service.NewWithdrawalService(
		sessions,
		keys,
		client,
		outbox,
		service.ChainParams{Index: cfg.Chain.Index, ChainID: chainID},
		listeners...,
	)

	// 4. Gin
	r := api.NewRouter(api.NewWalletHandler(walletService, withdrawalService, outbox, history))

	log.Logger.Info().Str("port", cfg.Port).Str("chain_index", cfg.Chain.Index).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Logger.Fatal().Err(err).Msg("server start failed")
	}
}
