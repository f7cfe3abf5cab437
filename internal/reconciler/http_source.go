package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSource fetches seat maps from the reservation service's query
// endpoint (GET /shows/{showId}/seats).  It is the SnapshotSource used
// by out-of-process clients.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds an HTTPSource.  client may be nil, in which case
// a client with a 10s timeout is used.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// seatMapResponse mirrors the wire shape of the seat map endpoint.
type seatMapResponse struct {
	ShowID uint64   `json:"showId"`
	Rows   []string `json:"rows"`
	Seats  []struct {
		SeatID            uint64     `json:"seatId"`
		RowLabel          string     `json:"rowLabel"`
		SeatNumber        uint32     `json:"seatNumber"`
		Status            string     `json:"status"`
		HeldByCurrentUser bool       `json:"heldByCurrentUser"`
		HoldExpiresAt     *time.Time `json:"holdExpiresAt,omitempty"`
	} `json:"seats"`
}

// SeatMap implements SnapshotSource over HTTP.
func (s *HTTPSource) SeatMap(ctx context.Context, showID uint64, holderID string) (*Snapshot, error) {
	u := fmt.Sprintf("%s/shows/%d/seats", s.baseURL, showID)
	if holderID != "" {
		u += "?holderId=" + url.QueryEscape(holderID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seat map request returned %s", resp.Status)
	}
	var body seatMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	snap := &Snapshot{ShowID: body.ShowID, Rows: body.Rows}
	for _, s := range body.Seats {
		snap.Seats = append(snap.Seats, SeatView{
			SeatID:            s.SeatID,
			RowLabel:          s.RowLabel,
			SeatNumber:        s.SeatNumber,
			Status:            s.Status,
			HeldByCurrentUser: s.HeldByCurrentUser,
			HoldExpiresAt:     s.HoldExpiresAt,
		})
	}
	return snap, nil
}
