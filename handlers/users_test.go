package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type userBody struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	userID, access := e.signupUser(t, "lee@example.com", "secret1")

	w := e.do(t, "GET", "/api/me", "", access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var u userBody
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &u))
	require.Equal(t, userID, u.ID)
	require.Equal(t, []string{"lee@example.com"}, u.Emails)

	w = e.do(t, "GET", "/api/me", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserList(t *testing.T) {
	e := newTestEnv(t)
	_, access := e.signupUser(t, "mia@example.com", "secret1")
	e.signupUser(t, "ned@example.com", "secret1")

	w := e.do(t, "GET", "/api/users", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	var list []userBody
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	require.Len(t, list, 2)
}

func TestUserSearch(t *testing.T) {
	e := newTestEnv(t)
	_, access := e.signupUser(t, "olga@example.com", "secret1")
	e.signupUser(t, "pete@example.com", "secret1")

	w := e.do(t, "GET", "/api/users/search/olga", "", access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list []userBody
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
	require.Len(t, list, 1)
	require.Equal(t, []string{"olga@example.com"}, list[0].Emails)
}
