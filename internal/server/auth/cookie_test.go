package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"lax":    http.SameSiteLaxMode,
		"Strict": http.SameSiteStrictMode,
		"NONE":   http.SameSiteNoneMode,
	}
	for in, want := range cases {
		got, err := ParseSameSite(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSameSite("sometimes")
	assert.Error(t, err)
}

func TestCookiePolicy(t *testing.T) {
	p := CookiePolicy{
		Name:     "access_token",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   15 * time.Minute,
	}

	set := p.Set("tok")
	assert.Equal(t, "access_token", set.Name)
	assert.Equal(t, "tok", set.Value)
	assert.Equal(t, 900, set.MaxAge)
	assert.True(t, set.HttpOnly)
	assert.True(t, set.Secure)
	assert.Equal(t, http.SameSiteLaxMode, set.SameSite)

	clr := p.Clear()
	assert.Equal(t, "access_token", clr.Name)
	assert.Empty(t, clr.Value)
	assert.Negative(t, clr.MaxAge)
}
