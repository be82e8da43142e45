package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tresorly/internal/flagx"
	"github.com/dmitrijs2005/tresorly/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SignupOTPTTL                 timex.Duration `json:"signup_otp_ttl"`
	ResetOTPTTL                  timex.Duration `json:"reset_otp_ttl"`
	OTPGrace                     timex.Duration `json:"otp_grace"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	HashWorkers                  int            `json:"hash_workers"`
	BreachAPIURL                 string         `json:"breach_api_url"`
	BreachTimeout                timex.Duration `json:"breach_timeout"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	MaxIconBytes                 int64          `json:"max_icon_bytes"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	AuthRateLimit                float64        `json:"auth_rate_limit"`
	AuthRateBurst                int            `json:"auth_rate_burst"`
	LogLevel                     string         `json:"log_level"`
	OAuthGatewaySecret           string         `json:"oauth_gateway_secret"`
}

// parseJson loads the file named by -c/-config (or $TRESORLY_CONFIG) and
// copies every field present in it onto config. Absent or zero fields keep
// their current value. Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setNonZero(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	setNonZero(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	setNonZero(&config.SignupOTPTTL, c.SignupOTPTTL.Duration)
	setNonZero(&config.ResetOTPTTL, c.ResetOTPTTL.Duration)
	setNonZero(&config.OTPGrace, c.OTPGrace.Duration)
	setNonZero(&config.BcryptCost, c.BcryptCost)
	setNonZero(&config.HashWorkers, c.HashWorkers)
	setString(&config.BreachAPIURL, c.BreachAPIURL)
	setNonZero(&config.BreachTimeout, c.BreachTimeout.Duration)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setNonZero(&config.RedisDB, c.RedisDB)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setNonZero(&config.MaxIconBytes, c.MaxIconBytes)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setNonZero(&config.AuthRateLimit, c.AuthRateLimit)
	setNonZero(&config.AuthRateBurst, c.AuthRateBurst)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.OAuthGatewaySecret, c.OAuthGatewaySecret)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNonZero[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
