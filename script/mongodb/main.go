package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/wallet_bot/config"
	"github.com/linlinbupt123-crypto/wallet_bot/db"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.Mongo.URI == "" {
		log.Logger.Fatal().Msg("mongo.uri is empty, nothing to initialize")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := db.NewMongoRepo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("MongoDB connect error")
	}
	defer func() {
		if err := repo.Close(ctx); err != nil {
			log.Storage.Error().Err(err).Msg("MongoDB disconnect error")
		}
	}()

	if err := initIndexes(ctx, repo.DB); err != nil {
		log.Logger.Fatal().Err(err).Msg("init indexes failed")
	}

	fmt.Println("All indexes initialized successfully.")
}

// 安全创建索引函数
func createIndexSafe(ctx context.Context, col *mongo.Collection, index mongo.IndexModel) error {
	_, err := col.Indexes().CreateOne(ctx, index)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil // 忽略已存在索引
		}
		return err
	}
	return nil
}

func initIndexes(ctx context.Context, database *mongo.Database) error {
	// withdrawals
	col := database.Collection(db.WithdrawalCollection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.M{"status": 1}},
		// 失败记录没有 order_id
		{Keys: bson.M{"order_id": 1}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"order_id": bson.M{"$gt": ""}})},
	}
	for _, idx := range indexes {
		if err := createIndexSafe(ctx, col, idx); err != nil {
			return fmt.Errorf("withdrawals index error: %w", err)
		}
	}
	return nil
}
