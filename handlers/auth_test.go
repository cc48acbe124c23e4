package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/internal/oauth"
)

func tokensFromEnvelope(t *testing.T, env envelope) (access, refresh, userID string) {
	t.Helper()
	var data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			ID     string   `json:"id"`
			Emails []string `json:"emails"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken, data.RefreshToken, data.User.ID
}

// startProviderFlow follows the redirect and returns the state parameter.
func startProviderFlow(t *testing.T, e *testEnv, bearer string) string {
	t.Helper()
	w := e.do(t, "GET", "/api/auth/facebook", "", bearer)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestSignupThenLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "POST", "/api/auth/signup", `{"email":"Ana@Example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	require.Equal(t, "Signup successful.", env.Message)
	access, refresh, userID := tokensFromEnvelope(t, env)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, userID)

	// email was normalized: the uppercase form logs in
	w = e.do(t, "POST", "/api/auth/login", `{"email":"ANA@EXAMPLE.COM","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env = decodeEnvelope(t, w)
	_, _, loginID := tokensFromEnvelope(t, env)
	require.Equal(t, userID, loginID)
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)
	e.signupUser(t, "bo@example.com", "secret1")

	// wrong password
	w := e.do(t, "POST", "/api/auth/login", `{"email":"bo@example.com","password":"wrongpw"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Wrong email or password.", decodeEnvelope(t, w).Message)

	// unknown email
	w = e.do(t, "POST", "/api/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "No account with that email address exists.", decodeEnvelope(t, w).Message)
}

func TestSignupValidation(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "POST", "/api/auth/signup", `{"email":"not-an-email","password":"secret1"}`, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Email is not valid.", decodeEnvelope(t, w).Message)

	w = e.do(t, "POST", "/api/auth/signup", `{"email":"ok@example.com","password":"short"}`, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Password must be at least 6 characters long.", decodeEnvelope(t, w).Message)
}

func TestSignupDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.signupUser(t, "dup@example.com", "secret1")

	w := e.do(t, "POST", "/api/auth/signup", `{"email":"dup@example.com","password":"other-secret"}`, "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "That email address is taken.", decodeEnvelope(t, w).Message)
}

func TestOAuthSignupThenReadThroughLogin(t *testing.T) {
	e := newTestEnv(t)
	e.adapter.users["code-1"] = oauth.ProviderUser{
		ID:          "fb-100",
		AccessToken: "fb-token-1",
		Profile:     identity.Profile{Email: "Cleo@Example.com", FirstName: "Cleo", LastName: "Marr"},
	}

	// first callback creates an identity
	state := startProviderFlow(t, e, "")
	w := e.do(t, "GET", "/api/auth/facebook/callback?code=code-1&state="+state, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.Equal(t, "Signup successful.", env.Message)
	_, _, userID := tokensFromEnvelope(t, env)

	// provider-only account has no local password
	w = e.do(t, "POST", "/api/auth/login", `{"email":"cleo@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, decodeEnvelope(t, w).Message, "no local password")

	// second callback is a plain sign in, same identity, no new account
	state = startProviderFlow(t, e, "")
	w = e.do(t, "GET", "/api/auth/facebook/callback?code=code-1&state="+state, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env = decodeEnvelope(t, w)
	require.Equal(t, "Login successful.", env.Message)
	_, _, again := tokensFromEnvelope(t, env)
	require.Equal(t, userID, again)
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	e := newTestEnv(t)
	e.adapter.users["code-2"] = oauth.ProviderUser{
		ID:      "fb-200",
		Profile: identity.Profile{Email: "solo@example.com"},
	}

	state := startProviderFlow(t, e, "")
	w := e.do(t, "GET", "/api/auth/facebook/callback?code=code-2&state="+state, "", "")
	require.Equal(t, http.StatusCreated, w.Code)

	// replay with the same state fails
	w = e.do(t, "GET", "/api/auth/facebook/callback?code=code-2&state="+state, "", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Invalid or expired state.", decodeEnvelope(t, w).Message)
}

func TestOAuthUnknownProviderAndBadCode(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/api/auth/github", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	state := startProviderFlow(t, e, "")
	w = e.do(t, "GET", "/api/auth/facebook/callback?code=bogus&state="+state, "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Provider sign in failed.", decodeEnvelope(t, w).Message)
}

func TestOAuthLinksToSignedInIdentity(t *testing.T) {
	e := newTestEnv(t)
	userID, access := e.signupUser(t, "dana@example.com", "secret1")
	e.adapter.users["code-3"] = oauth.ProviderUser{
		ID:          "fb-300",
		AccessToken: "fb-token-3",
		Profile:     identity.Profile{Email: "dana.fb@example.com", FirstName: "Dana", LastName: "Reyes"},
	}

	// the redirect carries the session, so the callback links instead of signing up
	state := startProviderFlow(t, e, access)
	w := e.do(t, "GET", "/api/auth/facebook/callback?code=code-3&state="+state, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.Equal(t, "Provider linked.", env.Message)
	_, _, linkedID := tokensFromEnvelope(t, env)
	require.Equal(t, userID, linkedID)

	// the link endpoint now reports the provider account
	w = e.do(t, "GET", "/api/auth/facebook/link", "", access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var link struct {
		Provider string `json:"provider"`
		ID       string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &link))
	require.Equal(t, "facebook", link.Provider)
	require.Equal(t, "fb-300", link.ID)
}

func TestProviderGateRedirectsWhenUnlinked(t *testing.T) {
	e := newTestEnv(t)
	_, access := e.signupUser(t, "nolink@example.com", "secret1")

	w := e.do(t, "GET", "/api/auth/facebook/link", "", access)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/api/auth/facebook", w.Header().Get("Location"))
}

func TestSignupWithSessionAttachesPassword(t *testing.T) {
	e := newTestEnv(t)
	e.adapter.users["code-4"] = oauth.ProviderUser{
		ID:      "fb-400",
		Profile: identity.Profile{Email: "eli@example.com", FirstName: "Eli", LastName: "Park"},
	}

	state := startProviderFlow(t, e, "")
	w := e.do(t, "GET", "/api/auth/facebook/callback?code=code-4&state="+state, "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	access, _, userID := tokensFromEnvelope(t, decodeEnvelope(t, w))

	// signed-in signup attaches a password to the provider identity
	w = e.do(t, "POST", "/api/auth/signup", `{"email":"eli@example.com","password":"secret1"}`, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.Equal(t, "Local password assigned to existing social sign on user.", env.Message)

	// local login now works and lands on the same identity
	w = e.do(t, "POST", "/api/auth/login", `{"email":"eli@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	_, _, loginID := tokensFromEnvelope(t, decodeEnvelope(t, w))
	require.Equal(t, userID, loginID)
}

func TestRefreshAndLogout(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/api/auth/signup", `{"email":"fay@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	access, refresh, _ := tokensFromEnvelope(t, decodeEnvelope(t, w))

	w = e.do(t, "POST", "/api/auth/refresh", `{"refreshToken":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	require.NotEmpty(t, data.AccessToken)

	w = e.do(t, "POST", "/api/auth/logout", `{"refreshToken":"`+refresh+`"}`, access)
	require.Equal(t, http.StatusOK, w.Code)

	// the refresh session is gone
	w = e.do(t, "POST", "/api/auth/refresh", `{"refreshToken":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMalformedBodies(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/auth/signup", "/api/auth/login", "/api/auth/refresh", "/api/auth/logout"} {
		w := e.do(t, "POST", path, `not json`, "")
		require.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}
