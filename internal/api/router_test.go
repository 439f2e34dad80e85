package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/simple-sharelink/pkg/sharelink"
	"github.com/tendant/simple-sharelink/pkg/sharelink/config"
	"github.com/tendant/simple-sharelink/pkg/sharelink/repo/memory"
)

type stubSigner struct {
	err error
}

func (s *stubSigner) SignDownloadURL(ctx context.Context, bucket, objectKey, filename string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("https://storage.example.com/%s?signature=abc", objectKey), nil
}

const testPassword = "correct horse battery staple"

func setupTestServer(t *testing.T) (*httptest.Server, *stubSigner) {
	t.Helper()

	signer := &stubSigner{}
	svc, err := sharelink.New(
		sharelink.WithRepository(memory.New()),
		sharelink.WithSigner(signer),
		sharelink.WithPublicURL("https://share.example.com", "download"),
	)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.ServerConfig{
		Port:               "8080",
		Environment:        "testing",
		PublicBaseURL:      "https://share.example.com",
		DownloadPrefix:     "download",
		DefaultExpirySecs:  3600,
		CORSAllowedOrigins: []string{"*"},
		Auth: config.AuthConfig{
			AdminUsername:     "admin",
			AdminPasswordHash: string(hash),
			JWTSecret:         "test-secret",
			JWTExpiryMinutes:  60,
		},
	}

	server := httptest.NewServer(NewRouter(svc, cfg))
	t.Cleanup(server.Close)

	return server, signer
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()

	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: testPassword})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func createLink(t *testing.T, server *httptest.Server, token string, req CreateLinkRequest) LinkResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, server.URL+"/api/links", token, req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var link LinkResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&link))
	return link
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "wrong"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManagementRequiresToken(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/links")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp2 := doJSON(t, http.MethodPost, server.URL+"/api/links", "not-a-token", CreateLinkRequest{ObjectKey: "a.txt"})
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestCreateAndListLinks(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server)

	two := int64(2)
	link := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "reports/q1.pdf",
		ExpiresInSeconds: 3600,
		MaxDownloads:     &two,
		DownloadFilename: "Q1 Report.pdf",
	})

	assert.Equal(t, "reports/q1.pdf", link.ObjectKey)
	assert.True(t, link.Usable)
	assert.False(t, link.IsExpired)
	require.NotNil(t, link.Remaining)
	assert.Equal(t, int64(2), *link.Remaining)
	assert.Equal(t, "https://share.example.com/download/"+link.ID, link.DownloadURL)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/links", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list ListLinksResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Links, 1)
	assert.Equal(t, link.ID, list.Links[0].ID)
}

func TestCreateLinkRejectsInvalidInput(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server)

	zero := int64(0)
	tests := []struct {
		name string
		req  CreateLinkRequest
	}{
		{name: "empty object key", req: CreateLinkRequest{ObjectKey: "  "}},
		{name: "zero max downloads", req: CreateLinkRequest{ObjectKey: "a.txt", MaxDownloads: &zero}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, server.URL+"/api/links", token, tt.req)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestDownloadRedirect(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server)

	link := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "reports/q1.pdf",
		ExpiresInSeconds: 3600,
	})

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Redemption is deliberately unauthenticated.
	resp, err := client.Get(server.URL + "/download/" + link.ID)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "reports/q1.pdf")
}

func TestDownloadErrorMapping(t *testing.T) {
	server, signer := setupTestServer(t)
	token := login(t, server)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Unknown token
	resp, err := client.Get(server.URL + "/download/" + "1e8f6a3e-0000-0000-0000-000000000000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Unparseable token
	resp, err = client.Get(server.URL + "/download/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Exhausted link
	one := int64(1)
	link := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "a.txt",
		ExpiresInSeconds: 3600,
		MaxDownloads:     &one,
	})

	resp, err = client.Get(server.URL + "/download/" + link.ID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, err = client.Get(server.URL + "/download/" + link.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Signer failure
	signer.err = errors.New("provider unavailable")
	unlimited := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "b.txt",
		ExpiresInSeconds: 3600,
	})

	resp, err = client.Get(server.URL + "/download/" + unlimited.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDownloadExpired(t *testing.T) {
	signer := &stubSigner{}
	clock := struct {
		now time.Time
	}{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc, err := sharelink.New(
		sharelink.WithRepository(memory.New()),
		sharelink.WithSigner(signer),
		sharelink.WithPublicURL("https://share.example.com", "download"),
		sharelink.WithClock(func() time.Time { return clock.now }),
	)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.ServerConfig{
		Port:              "8080",
		DownloadPrefix:    "download",
		DefaultExpirySecs: 3600,
		Auth: config.AuthConfig{
			AdminUsername:     "admin",
			AdminPasswordHash: string(hash),
			JWTSecret:         "test-secret",
			JWTExpiryMinutes:  60,
		},
	}

	server := httptest.NewServer(NewRouter(svc, cfg))
	defer server.Close()

	token := login(t, server)
	link := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "a.txt",
		ExpiresInSeconds: 1,
	})

	clock.now = clock.now.Add(2 * time.Second)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/download/" + link.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestDeleteLinkEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server)

	link := createLink(t, server, token, CreateLinkRequest{ObjectKey: "a.txt", ExpiresInSeconds: 3600})

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/links/"+link.ID, token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/links/"+link.ID, token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCleanupEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server)

	one := int64(1)
	link := createLink(t, server, token, CreateLinkRequest{
		ObjectKey:        "a.txt",
		ExpiresInSeconds: 3600,
		MaxDownloads:     &one,
	})

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/download/" + link.ID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	cleanupResp := doJSON(t, http.MethodPost, server.URL+"/api/cleanup", token, nil)
	defer cleanupResp.Body.Close()
	require.Equal(t, http.StatusOK, cleanupResp.StatusCode)

	var cleanup CleanupResponse
	require.NoError(t, json.NewDecoder(cleanupResp.Body).Decode(&cleanup))
	assert.Equal(t, int64(1), cleanup.DeletedCount)
}
