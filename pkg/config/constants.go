package config

const EnvPrefix = "TOOLDEPOT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv            = "TOOLDEPOT_APP_ENV"
	EnvPort              = "TOOLDEPOT_APP_PORT"
	EnvCatalogBaseURL    = "TOOLDEPOT_CATALOG_BASE_URL"
	EnvMediaStoreBaseURL = "TOOLDEPOT_MEDIASTORE_BASE_URL"
	EnvUploadConcurrency = "TOOLDEPOT_MEDIASTORE_UPLOAD_CONCURRENCY"
	EnvSessionTTL        = "TOOLDEPOT_SESSION_TTL"
)
