package common

// DefaultAccessTokenCookieName is the cookie that carries the access token
// when no other name is configured.
const DefaultAccessTokenCookieName = "access_token"

// BlacklistNamespace prefixes every key the service writes to Redis.
const BlacklistNamespace = "auth_service"
