package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/plebchat-cli/internal/domain"
)

func TestFetchPurposeTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, agentsPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fp-1234", body["fingerPrint"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SystemPurposes":{
			"Developer":{"title":"Developer","description":"Helps you code","placeHolder":"Ask about code","examples":["fix my bug"],"systemMessage":"You are a developer","chatLLM":"gpt-4","maxToken":2048,"contextWindow":8192,"convoCount":5,"satsPay":100,"nip05":"dev@getcurrent.io"},
			"Generic":{"title":"Default","chatLLM":"gpt-3.5-turbo","convoCount":10,"satsPay":50,"paid":true}
		}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	table, err := client.Fetch(context.Background(), "fp-1234")

	require.NoError(t, err)
	require.Len(t, table, 2)

	dev := table["Developer"]
	assert.Equal(t, domain.PurposeID("Developer"), dev.ID)
	assert.Equal(t, "gpt-4", dev.ChatModel)
	assert.Equal(t, 8192, dev.ContextTokens)
	assert.Equal(t, 2048, dev.ResponseTokens)
	assert.Equal(t, 5, dev.ConvoCount)
	assert.EqualValues(t, 100, dev.SatsPay)
	assert.Equal(t, "dev@getcurrent.io", dev.NIP05)
	assert.False(t, dev.Paid)

	generic := table["Generic"]
	assert.True(t, generic.Paid)
	assert.Equal(t, defaultContextTokens, generic.ContextTokens, "missing context window falls back")
}

func TestFetchEmptyTableRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SystemPurposes":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Fetch(context.Background(), "fp-1234")

	assert.Error(t, err)
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Fetch(context.Background(), "fp-1234")

	assert.Error(t, err)
}
