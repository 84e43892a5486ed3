package storage

import (
	"fmt"
	"log"

	"github.com/retrato-app/retrato/config"
)

// NewProvider 根据配置创建存储提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	log.Printf("Initializing storage, type: %s", cfg.StorageType)

	switch cfg.StorageType {
	case "", "local":
		provider, err := NewLocalStorage(cfg.StorageLocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		log.Println("Successfully initialized 'local' storage provider")
		return provider, nil

	case "minio":
		provider, err := NewMinioStorage(MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKey,
			SecretAccessKey: cfg.StorageMinioSecretKey,
			BucketName:      cfg.StorageMinioBucket,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio storage: %w", err)
		}
		log.Println("Successfully initialized 'minio' storage provider")
		return provider, nil

	case "webdav":
		provider, err := NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.StorageWebdavURL,
			Username: cfg.StorageWebdavUsername,
			Password: cfg.StorageWebdavPassword,
			RootPath: cfg.StorageWebdavRoot,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize webdav storage: %w", err)
		}
		log.Println("Successfully initialized 'webdav' storage provider")
		return provider, nil

	default:
		return nil, fmt.Errorf("invalid storage type specified in config: %s", cfg.StorageType)
	}
}
