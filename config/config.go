package config

type Config struct {
	Address  string `json:"address" env:"APP_ADDRESS" envDefault:":3000"`
	Prefork  bool   `json:"prefork" env:"APP_PREFORK"`
	Metrics  *bool  `json:"metrics" env:"APP_METRICS"`
	LogLevel string `json:"logLevel" env:"APP_LOG_LEVEL" envDefault:"info"`

	// Encode previews as WebP unless the request says otherwise.
	Webp bool `json:"webp" env:"APP_WEBP"`

	AllowedOrigins []string `json:"allowedOrigins" env:"APP_ALLOWED_ORIGINS"`
	HmacKey        string   `json:"-" env:"APP_HMAC_KEY"`
	Token          string   `json:"-" env:"APP_TOKEN"`

	MaxFrameWidth  int `json:"maxFrameWidth" env:"APP_MAX_FRAME_WIDTH" envDefault:"4096"`
	MaxFrameHeight int `json:"maxFrameHeight" env:"APP_MAX_FRAME_HEIGHT" envDefault:"4096"`
	MaxVideoSize   int `json:"maxVideoSize" env:"APP_MAX_VIDEO_SIZE" envDefault:"100"` // MB
	MaxVideoFrames int `json:"maxVideoFrames" env:"APP_MAX_VIDEO_FRAMES" envDefault:"1800"`
	FetchTimeout   int `json:"fetchTimeout" env:"APP_FETCH_TIMEOUT" envDefault:"30"` // seconds

	CacheNumCounters int64 `json:"cacheNumCounters" env:"APP_CACHE_NUM_COUNTERS"`
	CacheMaxCost     int64 `json:"cacheMaxCost" env:"APP_CACHE_MAX_COST"`
	CacheBufferItems int64 `json:"cacheBufferItems" env:"APP_CACHE_BUFFER_ITEMS"`
	CacheTTL         int   `json:"cacheTTL" env:"APP_CACHE_TTL"`           // seconds
	HTTPCacheTTL     int   `json:"httpCacheTTL" env:"APP_HTTP_CACHE_TTL"` // seconds

	RateLimitMax    int `json:"rateLimitMax" env:"APP_RATE_LIMIT_MAX"`
	RateLimitWindow int `json:"rateLimitWindow" env:"APP_RATE_LIMIT_WINDOW" envDefault:"60"` // seconds

	S3Enabled   bool   `json:"s3Enabled" env:"APP_S3_ENABLED"`
	S3Endpoint  string `json:"s3Endpoint" env:"APP_S3_ENDPOINT"`
	S3AccessKey string `json:"-" env:"APP_S3_ACCESS_KEY"`
	S3SecretKey string `json:"-" env:"APP_S3_SECRET_KEY"`
	S3UseSSL    bool   `json:"s3UseSSL" env:"APP_S3_USE_SSL" envDefault:"true"`
	S3Bucket    string `json:"s3Bucket" env:"APP_S3_BUCKET" envDefault:"pulse-signals"`
	S3Prefix    string `json:"s3Prefix" env:"APP_S3_PREFIX" envDefault:"series"`
}
