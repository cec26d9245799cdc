package config

const (
	storageEnvVar  = "STORAGE"
	redisURLEnvVar = "REDIS_URL"

	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type StorageConfig interface {
	GetStorage() string
	GetRedisURL() string
}

type Storage struct {
	file *File
}

var _ StorageConfig = Storage{}

// GetStorage selects the login session store: "memory" (single instance) or "redis"
func (s Storage) GetStorage() string {
	return GetEnv(storageEnvVar, orDefault(s.file.Storage.Driver, StorageMemory))
}

func (s Storage) GetRedisURL() string {
	return GetEnv(redisURLEnvVar, s.file.Storage.RedisURL)
}
