package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Assets        AssetConfig
	Cache         CacheConfig
	Sync          SyncConfig
	PubSub        PubSubConfig
	Mail          MailConfig
	Verification  VerificationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FANGALLERY_APP_ENV" required:"true"`
	Port         string `envconfig:"FANGALLERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FANGALLERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FANGALLERY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"FANGALLERY_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FANGALLERY_DB_DSN"`
	Driver string `envconfig:"FANGALLERY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FANGALLERY_DB_HOST"`
	LegacyPort     int    `envconfig:"FANGALLERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FANGALLERY_DB_USER"`
	LegacyPassword string `envconfig:"FANGALLERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"FANGALLERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"FANGALLERY_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"FANGALLERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FANGALLERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FANGALLERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FANGALLERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FANGALLERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FANGALLERY_REDIS_ADDR"`
	Password     string        `envconfig:"FANGALLERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"FANGALLERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FANGALLERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FANGALLERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FANGALLERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FANGALLERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FANGALLERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FANGALLERY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FANGALLERY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FANGALLERY_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"FANGALLERY_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the admin session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FANGALLERY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FANGALLERY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FANGALLERY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FANGALLERY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FANGALLERY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FANGALLERY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"FANGALLERY_AUTO_MIGRATE" default:"false"`
	BridgeEnabled bool `envconfig:"FANGALLERY_INVALIDATION_BRIDGE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FANGALLERY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FANGALLERY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FANGALLERY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"FANGALLERY_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL     string        `envconfig:"FANGALLERY_GCS_PUBLIC_BASE_URL"`
	DownloadURLExpiry time.Duration `envconfig:"FANGALLERY_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type AssetConfig struct {
	MaxUploadMB     int `envconfig:"FANGALLERY_MAX_UPLOAD_MB" default:"100"`
	ThumbnailWidth  int `envconfig:"FANGALLERY_THUMBNAIL_WIDTH" default:"480"`
	ThumbnailHeight int `envconfig:"FANGALLERY_THUMBNAIL_HEIGHT" default:"270"`
}

type CacheConfig struct {
	SnapshotTTL time.Duration `envconfig:"FANGALLERY_CACHE_SNAPSHOT_TTL" default:"0"`
}

type SyncConfig struct {
	RemoteAttempts  int           `envconfig:"FANGALLERY_SYNC_REMOTE_ATTEMPTS" default:"3"`
	RemoteBackoff   time.Duration `envconfig:"FANGALLERY_SYNC_REMOTE_BACKOFF" default:"100ms"`
	MemoryCache     bool          `envconfig:"FANGALLERY_SYNC_MEMORY_CACHE" default:"true"`
}

type PubSubConfig struct {
	InvalidationTopic        string `envconfig:"FANGALLERY_PUBSUB_INVALIDATION_TOPIC"`
	InvalidationSubscription string `envconfig:"FANGALLERY_PUBSUB_INVALIDATION_SUBSCRIPTION"`
}

type MailConfig struct {
	APIKey      string `envconfig:"FANGALLERY_MAIL_API_KEY"`
	DefaultFrom string `envconfig:"FANGALLERY_MAIL_FROM_EMAIL"`
	BaseURL     string `envconfig:"FANGALLERY_MAIL_BASE_URL"`
}

type VerificationConfig struct {
	CodeTTL      time.Duration `envconfig:"FANGALLERY_VERIFICATION_CODE_TTL" default:"15m"`
	MaxAttempts  int           `envconfig:"FANGALLERY_VERIFICATION_MAX_ATTEMPTS" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
