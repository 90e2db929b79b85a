package bookie

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/models"
)

// stakeOneIDPrefix prefixes every StakeOne event ID; the remainder is the
// canonical event ID.
const stakeOneIDPrefix = "sr"

// StakeOne is the first competitor adapter. Discovery enumerates tournaments
// under the football sport and lists events per tournament; the native event
// ID encodes the canonical ID directly.
type StakeOne struct {
	client   *Client
	baseURL  string
	clientID string
	log      *logrus.Logger
}

type stakeOneTournamentsResponse struct {
	Tournaments []stakeOneTournament `json:"tournaments"`
}

type stakeOneTournament struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type stakeOneEventsResponse struct {
	Events []stakeOneEvent `json:"events"`
}

type stakeOneEvent struct {
	ID         string              `json:"id"`
	HomeTeam   string              `json:"homeTeam"`
	AwayTeam   string              `json:"awayTeam"`
	StartTime  string              `json:"startTime"`
	Tournament *stakeOneTournament `json:"tournament"`
	Markets    []stakeOneMarket    `json:"markets"`
}

type stakeOneMarket struct {
	MarketID   string              `json:"marketId"`
	MarketName string              `json:"marketName"`
	Param      string              `json:"param"`
	Selections []stakeOneSelection `json:"selections"`
}

type stakeOneSelection struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// NewStakeOne creates the first competitor adapter
func NewStakeOne(client *Client, baseURL, clientID string, log *logrus.Logger) *StakeOne {
	return &StakeOne{
		client:   client,
		baseURL:  baseURL,
		clientID: clientID,
		log:      log,
	}
}

// Slug returns the bookmaker identifier
func (s *StakeOne) Slug() string {
	return models.BookmakerStakeOne
}

func (s *StakeOne) headers() map[string]string {
	return map[string]string{
		"User-Agent":      defaultUserAgent,
		"Accept-Language": "en-GB,en;q=0.9",
		"X-Client-Id":     s.clientID,
	}
}

// DiscoverEvents enumerates football tournaments and their upcoming events
func (s *StakeOne) DiscoverEvents(ctx context.Context) ([]DiscoveredEvent, error) {
	tournaments, err := s.fetchTournaments(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var discovered []DiscoveredEvent
	for _, t := range tournaments {
		events, err := s.fetchTournamentEvents(ctx, t.ID)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"platform":   s.Slug(),
				"tournament": t.ID,
				"error":      err.Error(),
			}).Warn("Skipping tournament listing")
			continue
		}

		for _, ev := range events {
			canonical, ok := canonicalFromStakeOneID(ev.ID)
			if !ok {
				s.log.WithFields(logrus.Fields{
					"platform": s.Slug(),
					"event":    ev.ID,
				}).Debug("Event ID missing canonical prefix")
				continue
			}
			kickoff, err := time.Parse(time.RFC3339, ev.StartTime)
			if err != nil || !kickoff.After(now) {
				continue
			}
			discovered = append(discovered, DiscoveredEvent{
				CanonicalID:   canonical,
				NativeEventID: ev.ID,
				Kickoff:       kickoff.UTC(),
			})
		}
	}
	return discovered, nil
}

// FetchEvent retrieves the full odds payload for one event
func (s *StakeOne) FetchEvent(ctx context.Context, nativeEventID string) (*RawEvent, error) {
	url := fmt.Sprintf("%s/api/v1/events/%s", s.baseURL, nativeEventID)
	resp, err := s.client.Get(ctx, url, s.headers())
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeNetwork, "failed to fetch event", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, NewAdapterError(s.Slug(), ErrCodeInvalidEventID, "event not found", nil)
	}
	if err := s.checkStatus(resp, "event"); err != nil {
		return nil, err
	}

	var ev stakeOneEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse event payload", err)
	}

	kickoff, err := time.Parse(time.RFC3339, ev.StartTime)
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, fmt.Sprintf("unparseable start time %q", ev.StartTime), err)
	}
	canonical, _ := canonicalFromStakeOneID(ev.ID)

	raw := &RawEvent{
		NativeEventID: ev.ID,
		CanonicalID:   canonical,
		HomeTeam:      ev.HomeTeam,
		AwayTeam:      ev.AwayTeam,
		Kickoff:       kickoff.UTC(),
		Markets:       make([]RawMarket, 0, len(ev.Markets)),
	}
	if ev.Tournament != nil {
		raw.TournamentID = strconv.FormatInt(ev.Tournament.ID, 10)
		raw.TournamentName = ev.Tournament.Name
	}

	for _, m := range ev.Markets {
		market := RawMarket{
			NativeMarketID: m.MarketID,
			Name:           m.MarketName,
			Param:          m.Param,
			Outcomes:       make([]RawOutcome, 0, len(m.Selections)),
		}
		for _, sel := range m.Selections {
			market.Outcomes = append(market.Outcomes, RawOutcome{
				Name:     sel.Name,
				Odds:     sel.Price,
				IsActive: sel.Active,
			})
		}
		raw.Markets = append(raw.Markets, market)
	}
	return raw, nil
}

// CheckHealth probes the tournament listing
func (s *StakeOne) CheckHealth(ctx context.Context) bool {
	resp, err := s.client.Get(ctx, s.baseURL+"/api/v1/tournaments?sport=football", s.headers())
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (s *StakeOne) fetchTournaments(ctx context.Context) ([]stakeOneTournament, error) {
	resp, err := s.client.Get(ctx, s.baseURL+"/api/v1/tournaments?sport=football", s.headers())
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeNetwork, "failed to fetch tournaments", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "tournaments"); err != nil {
		return nil, err
	}

	var listing stakeOneTournamentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse tournaments", err)
	}
	return listing.Tournaments, nil
}

func (s *StakeOne) fetchTournamentEvents(ctx context.Context, tournamentID int64) ([]stakeOneEvent, error) {
	url := fmt.Sprintf("%s/api/v1/tournaments/%d/events", s.baseURL, tournamentID)
	resp, err := s.client.Get(ctx, url, s.headers())
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeNetwork, "failed to fetch tournament events", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "tournament events"); err != nil {
		return nil, err
	}

	var listing stakeOneEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse tournament events", err)
	}
	return listing.Events, nil
}

func (s *StakeOne) checkStatus(resp *http.Response, what string) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewAdapterError(s.Slug(), ErrCodeRateLimited, "rate limited", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewAdapterError(s.Slug(), ErrCodeAPI,
			fmt.Sprintf("unexpected status %d fetching %s: %s", resp.StatusCode, what, string(body)), nil)
	}
	return nil
}

func canonicalFromStakeOneID(nativeID string) (string, bool) {
	if !strings.HasPrefix(nativeID, stakeOneIDPrefix) || len(nativeID) <= len(stakeOneIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(nativeID, stakeOneIDPrefix), true
}
