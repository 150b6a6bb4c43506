package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ansilo/internal/connector"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// catalogSearcher discovers a peer's entities over its unauthenticated
// catalog endpoint (§4.D): a plain GET returning the peer's entity.Config
// list as JSON. No credentials are sent or required -- the endpoint only
// ever reveals schema shape, never row data, so exposing it without
// AuthDataSource is an explicit, bounded trust decision, not an oversight.
type catalogSearcher struct {
	baseURL string
	client  *http.Client
}

func (s *catalogSearcher) httpClient() *http.Client {
	if s.client != nil {
		return s.client
	}
	return http.DefaultClient
}

func (s *catalogSearcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	url := s.baseURL
	if filter != "" {
		url = fmt.Sprintf("%s?filter=%s", s.baseURL, filter)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "peer.Discover", err)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "peer.Discover", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.Newf(ierrors.Remote, "peer.Discover", "catalog endpoint returned %d", resp.StatusCode)
	}

	var cfgs []*entity.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfgs); err != nil {
		return nil, ierrors.New(ierrors.Data, "peer.Discover", err)
	}
	return cfgs, nil
}

var _ connector.EntitySearcher = (*catalogSearcher)(nil)
