package config

const (
	EnvPrefix = "FANGALLERY"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "FANGALLERY_APP_ENV"
	EnvPort     = "FANGALLERY_APP_PORT"
	EnvDBDSN    = "FANGALLERY_DB_DSN"
	EnvDBHost   = "FANGALLERY_DB_HOST"
	EnvDBUser   = "FANGALLERY_DB_USER"
	EnvDBName   = "FANGALLERY_DB_NAME"
	EnvRedisURL = "FANGALLERY_REDIS_URL"

	EnvJWTSecret  = "FANGALLERY_JWT_SECRET"
	EnvJWTIssuer  = "FANGALLERY_JWT_ISSUER"
	EnvGCSBucket  = "FANGALLERY_GCS_BUCKET_NAME"
	EnvGCPProject = "FANGALLERY_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
