package config

import "github.com/spf13/viper"

// setDefaults seeds viper with the default configuration values.
func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("blobstore.backend", "memory")
	viper.SetDefault("blobstore.bucket", "readerpane")
	viper.SetDefault("blobstore.prefix", "")
	viper.SetDefault("blobstore.region", "us-east-1")
	viper.SetDefault("blobstore.endpoint", "")
	viper.SetDefault("blobstore.use_path_style", false)

	viper.SetDefault("ingest.range_size", 24)
	viper.SetDefault("ingest.concurrency", 4)

	viper.SetDefault("page_cache.capacity", 12)
	viper.SetDefault("page_cache.ttl_minutes", 5)

	viper.SetDefault("preload.batch_size", 8)
	viper.SetDefault("preload.safety_offset", 2)
	viper.SetDefault("preload.concurrency", 2)
}
