package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/chitly/chit/internal/config"
)

func fakeFacebook(t *testing.T, graphBody string, graphStatus int) (*httptest.Server, *facebookAdapter) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fb-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(graphStatus)
		_, _ = w.Write([]byte(graphBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := &facebookAdapter{
		conf: &oauth2.Config{
			ClientID:     "cid",
			ClientSecret: "csecret",
			RedirectURL:  "http://localhost/cb",
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/auth",
				TokenURL: srv.URL + "/token",
			},
		},
		graphURL:   srv.URL + "/me",
		httpClient: srv.Client(),
	}
	return srv, a
}

func TestFacebookResolveProfile(t *testing.T) {
	body := `{"id":"fb-1","email":"Ana@Example.com","first_name":"Ana","last_name":"Diaz","name":"Ana Diaz"}`
	_, a := fakeFacebook(t, body, http.StatusOK)

	u, err := a.ResolveProfile(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("ResolveProfile error: %v", err)
	}
	if u.ID != "fb-1" {
		t.Fatalf("unexpected provider user id: %v", u.ID)
	}
	if u.AccessToken != "fb-token" {
		t.Fatalf("unexpected access token: %v", u.AccessToken)
	}
	if u.Profile.Email != "Ana@Example.com" || u.Profile.FirstName != "Ana" || u.Profile.DisplayName != "Ana Diaz" {
		t.Fatalf("unexpected profile: %+v", u.Profile)
	}
}

func TestFacebookResolveProfile_BadCode(t *testing.T) {
	_, a := fakeFacebook(t, `{}`, http.StatusOK)

	_, err := a.ResolveProfile(context.Background(), "bad-code")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestFacebookResolveProfile_NoEmail(t *testing.T) {
	body := `{"id":"fb-2","first_name":"No","last_name":"Mail","name":"No Mail"}`
	_, a := fakeFacebook(t, body, http.StatusOK)

	_, err := a.ResolveProfile(context.Background(), "good-code")
	if !errors.Is(err, ErrNoProviderEmail) {
		t.Fatalf("expected ErrNoProviderEmail, got %v", err)
	}
}

func TestFacebookAuthURL(t *testing.T) {
	a := NewFacebookAdapter(config.OAuthProviderConfig{
		ClientID:    "cid",
		RedirectURL: "http://localhost/cb",
	})
	url, err := a.AuthURL("the-state")
	if err != nil {
		t.Fatalf("AuthURL error: %v", err)
	}
	if !strings.Contains(url, "state=the-state") {
		t.Fatalf("auth url missing state: %v", url)
	}
	if !strings.Contains(url, "client_id=cid") {
		t.Fatalf("auth url missing client id: %v", url)
	}
}
