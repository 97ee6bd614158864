package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreClient_Validation(t *testing.T) {
	_, err := NewStoreClient(StoreConfig{Token: "t"})
	assert.Error(t, err)

	_, err = NewStoreClient(StoreConfig{BaseURL: "https://localhost:8089"})
	assert.Error(t, err)

	c, err := NewStoreClient(StoreConfig{BaseURL: "https://localhost:8089/", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:8089", c.baseURL)
}

func TestStoreClient_List(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"entry": [
				{
					"acl": {"app": "TA-eclecticiq"},
					"content": {"realm": "eiq", "clear_password": "{\"api_key\":\"k1\"}"}
				},
				{
					"acl": {"app": "TA-eclecticiq"},
					"content": {"realm": "eiq_settings", "clear_password": "{\"proxy_password\":\"p1\"}"}
				}
			]
		}`))
	}))
	defer server.Close()

	client, err := NewStoreClient(StoreConfig{
		BaseURL: server.URL,
		Token:   "secret-token",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	records, err := client.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/services/storage/passwords", gotPath)
	assert.Contains(t, gotQuery, "output_mode=json")
	assert.Contains(t, gotQuery, "count=0")

	require.Len(t, records, 2)
	assert.Equal(t, SecretRecord{
		AppScope:      "TA-eclecticiq",
		Realm:         "eiq",
		ClearPassword: `{"api_key":"k1"}`,
	}, records[0])
	assert.Equal(t, "eiq_settings", records[1].Realm)
}

func TestStoreClient_List_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewStoreClient(StoreConfig{BaseURL: server.URL, Token: "bad"})
	require.NoError(t, err)

	_, err = client.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStoreClient_List_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewStoreClient(StoreConfig{BaseURL: server.URL, Token: "t"})
	require.NoError(t, err)

	_, err = client.List(context.Background())
	assert.Error(t, err)
}
