package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from "zero", so a partial file only overrides what it
// names.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RedisAddr                    *string         `json:"redis_addr"`
	RedisPassword                *string         `json:"redis_password"`
	RedisDB                      *int            `json:"redis_db"`
	SecretKey                    *string         `json:"secret_key"`
	SigningAlgorithm             *string         `json:"signing_algorithm"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	BlacklistTTL                 *timex.Duration `json:"blacklist_ttl"`
	AccessTokenCookieName        *string         `json:"access_token_cookie_name"`
	AccessTokenCookieSecure      *bool           `json:"access_token_cookie_secure"`
	AccessTokenCookieHTTPOnly    *bool           `json:"access_token_cookie_httponly"`
	AccessTokenCookieSameSite    *string         `json:"access_token_cookie_samesite"`
	TrustedProxies               *[]string       `json:"trusted_proxies"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Nothing happens
// when no file is given; an unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
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

	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setIf(&config.RedisDB, c.RedisDB)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.SigningAlgorithm, c.SigningAlgorithm)
	setIf(&config.AccessTokenCookieName, c.AccessTokenCookieName)
	setIf(&config.AccessTokenCookieSecure, c.AccessTokenCookieSecure)
	setIf(&config.AccessTokenCookieHTTPOnly, c.AccessTokenCookieHTTPOnly)
	setIf(&config.AccessTokenCookieSameSite, c.AccessTokenCookieSameSite)
	setIf(&config.TrustedProxies, c.TrustedProxies)
	setIf(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.BlacklistTTL != nil {
		config.BlacklistTTL = c.BlacklistTTL.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
