package httpprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/evidence"
	"github.com/decision-gate/core/pkg/model"
)

func TestRegistry_DispatchesAndDecodesResult(t *testing.T) {
	var gotReq wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(model.EvidenceResult{
			Value: &model.EvidenceValue{Kind: "json", Value: true},
			Lane:  model.LaneVerified,
		})
	}))
	defer server.Close()

	reg := New(map[string]string{"p1": server.URL}, 0)
	provider, ok := reg.Provider("p1")
	require.True(t, ok)

	query := model.EvidenceQuery{ProviderID: "p1", CheckID: "check1"}
	evidCtx := evidence.Context{RunID: "r1", StageID: "s1", TriggerID: "t1", TriggerTime: 100}

	result, err := provider.Query(context.Background(), query, evidCtx)
	require.NoError(t, err)
	require.Equal(t, model.LaneVerified, result.Lane)
	require.Equal(t, true, result.Value.Value)

	require.Equal(t, "p1", gotReq.Query.ProviderID)
	require.Equal(t, "r1", gotReq.RunID)
	require.Equal(t, "s1", gotReq.StageID)
	require.Equal(t, "t1", gotReq.Trigger)
	require.Equal(t, int64(100), gotReq.AtUnix)
}

func TestRegistry_UnknownProviderIDMisses(t *testing.T) {
	reg := New(map[string]string{"p1": "http://example.invalid"}, 0)
	_, ok := reg.Provider("does-not-exist")
	require.False(t, ok)
}

func TestRegistry_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reg := New(map[string]string{"p1": server.URL}, 0)
	provider, ok := reg.Provider("p1")
	require.True(t, ok)

	_, err := provider.Query(context.Background(), model.EvidenceQuery{ProviderID: "p1"}, evidence.Context{})
	require.Error(t, err)
}
