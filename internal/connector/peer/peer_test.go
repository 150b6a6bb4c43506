package peer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

func TestOptionsValidateRequiresDSNAndCatalogURL(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.Error(t, Options{DSN: "postgres://x"}.validate())
	assert.NoError(t, Options{DSN: "postgres://x", CatalogURL: "http://peer/catalog"}.validate())
}

func TestCatalogSearcherDecodesEntityList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfgs := []*entity.Config{
			{ID: "orders", Name: "orders", Attributes: []entity.Attribute{
				{ID: "id", Type: data.Int64()},
			}},
		}
		_ = json.NewEncoder(w).Encode(cfgs)
	}))
	defer srv.Close()

	s := &catalogSearcher{baseURL: srv.URL}
	cfgs, err := s.Discover(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, entity.ID("orders"), cfgs[0].ID)
}

func TestCatalogSearcherRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &catalogSearcher{baseURL: srv.URL}
	_, err := s.Discover(context.Background(), "")
	assert.Error(t, err)
}
