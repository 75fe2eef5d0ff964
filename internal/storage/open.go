package storage

import (
	"context"
	"fmt"

	"github.com/anonto42/yatube/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
)

// Open returns the store selected by MEDIA_BACKEND. mongo is only used by
// the gridfs backend.
func Open(ctx context.Context, cfg *config.Config, mongoClient *mongo.Client) (Store, error) {
	switch cfg.MediaBackend {
	case "", "fs":
		return NewFSStore(cfg.MediaRoot)
	case "minio":
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "gridfs":
		if mongoClient == nil {
			return nil, fmt.Errorf("gridfs media backend needs a MongoDB connection")
		}
		return NewGridFSStore(mongoClient.Database(cfg.MongoDatabase))
	}
	return nil, fmt.Errorf("unsupported MEDIA_BACKEND %q", cfg.MediaBackend)
}
