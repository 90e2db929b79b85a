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
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/models"
)

// SpinBet body envelope result codes
const (
	spinBetResultOK       = "OK"
	spinBetResultError    = "E"
	spinBetResultNotFound = "D" // event deleted / unknown
)

// SpinBet is the second competitor adapter. Discovery walks the nested
// sport-group → group hierarchy; events carry the canonical ID in a
// dedicated betradar field. Outcome odds arrive as strings and market keys
// are structured S_<MARKET>[@<PARAM>]_<OUTCOME>; the raw outcome name
// carries the full selection key for the mapper to take apart.
type SpinBet struct {
	client  *Client
	baseURL string
	log     *logrus.Logger
}

type spinBetEnvelope struct {
	Result string `json:"result"`
}

type spinBetGroupsResponse struct {
	Result string         `json:"result"`
	Groups []spinBetGroup `json:"groups"`
}

type spinBetGroup struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Groups []spinBetGroup `json:"groups"`
}

type spinBetEventsResponse struct {
	Result string         `json:"result"`
	Events []spinBetEvent `json:"events"`
}

type spinBetEventResponse struct {
	Result string       `json:"result"`
	Event  spinBetEvent `json:"event"`
}

type spinBetEvent struct {
	ID         int64           `json:"id"`
	BetradarID int64           `json:"betradar_id"`
	Team1      string          `json:"team1"`
	Team2      string          `json:"team2"`
	StartTS    int64           `json:"start_ts"`
	Group      *spinBetGroup   `json:"group"`
	Markets    []spinBetMarket `json:"markets"`
}

type spinBetMarket struct {
	Key  string        `json:"key"`
	Name string        `json:"name"`
	Odds []spinBetOdds `json:"odds"`
}

type spinBetOdds struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Rate    string `json:"rate"`
	Blocked bool   `json:"blocked"`
}

// NewSpinBet creates the second competitor adapter. Request pacing is the
// client's concern; pass a client built with the configured minimum gap.
func NewSpinBet(client *Client, baseURL string, log *logrus.Logger) *SpinBet {
	return &SpinBet{
		client:  client,
		baseURL: baseURL,
		log:     log,
	}
}

// Slug returns the bookmaker identifier
func (s *SpinBet) Slug() string {
	return models.BookmakerSpinBet
}

func (s *SpinBet) headers() map[string]string {
	return map[string]string{
		"User-Agent":      defaultUserAgent,
		"Accept-Language": "en-GB,en;q=0.9",
		"X-Session-Kind":  "rest",
	}
}

// DiscoverEvents walks the football sport-group and lists upcoming events
// per nested group
func (s *SpinBet) DiscoverEvents(ctx context.Context) ([]DiscoveredEvent, error) {
	groups, err := s.fetchGroups(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var discovered []DiscoveredEvent
	for _, sportGroup := range groups {
		if !strings.EqualFold(sportGroup.Name, "football") {
			continue
		}
		for _, group := range sportGroup.Groups {
			events, err := s.fetchGroupEvents(ctx, group.ID)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"platform": s.Slug(),
					"group":    group.ID,
					"error":    err.Error(),
				}).Warn("Skipping group listing")
				continue
			}

			for _, ev := range events {
				if ev.BetradarID == 0 {
					continue
				}
				kickoff := time.Unix(ev.StartTS, 0).UTC()
				if !kickoff.After(now) {
					continue
				}
				discovered = append(discovered, DiscoveredEvent{
					CanonicalID:   strconv.FormatInt(ev.BetradarID, 10),
					NativeEventID: strconv.FormatInt(ev.ID, 10),
					Kickoff:       kickoff,
				})
			}
		}
	}
	return discovered, nil
}

// FetchEvent retrieves the full odds payload for one event
func (s *SpinBet) FetchEvent(ctx context.Context, nativeEventID string) (*RawEvent, error) {
	url := fmt.Sprintf("%s/rest/event/%s", s.baseURL, nativeEventID)
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

	var payload spinBetEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse event payload", err)
	}
	if err := s.checkEnvelope(payload.Result, "event"); err != nil {
		return nil, err
	}

	ev := payload.Event
	raw := &RawEvent{
		NativeEventID: strconv.FormatInt(ev.ID, 10),
		CanonicalID:   strconv.FormatInt(ev.BetradarID, 10),
		HomeTeam:      ev.Team1,
		AwayTeam:      ev.Team2,
		Kickoff:       time.Unix(ev.StartTS, 0).UTC(),
		Markets:       make([]RawMarket, 0, len(ev.Markets)),
	}
	if ev.Group != nil {
		raw.TournamentID = strconv.FormatInt(ev.Group.ID, 10)
		raw.TournamentName = ev.Group.Name
	}

	for _, m := range ev.Markets {
		market := RawMarket{
			NativeMarketID: m.Key,
			Name:           m.Name,
			Outcomes:       make([]RawOutcome, 0, len(m.Odds)),
		}
		for _, o := range m.Odds {
			market.Outcomes = append(market.Outcomes, RawOutcome{
				Name:     o.Key,
				Odds:     parseRate(o.Rate),
				IsActive: !o.Blocked,
			})
		}
		raw.Markets = append(raw.Markets, market)
	}
	return raw, nil
}

// CheckHealth probes the group hierarchy
func (s *SpinBet) CheckHealth(ctx context.Context) bool {
	resp, err := s.client.Get(ctx, s.baseURL+"/rest/groups", s.headers())
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false
	}
	var env spinBetEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false
	}
	return env.Result == spinBetResultOK
}

func (s *SpinBet) fetchGroups(ctx context.Context) ([]spinBetGroup, error) {
	resp, err := s.client.Get(ctx, s.baseURL+"/rest/groups", s.headers())
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeNetwork, "failed to fetch groups", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "groups"); err != nil {
		return nil, err
	}

	var listing spinBetGroupsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse groups", err)
	}
	if err := s.checkEnvelope(listing.Result, "groups"); err != nil {
		return nil, err
	}
	return listing.Groups, nil
}

func (s *SpinBet) fetchGroupEvents(ctx context.Context, groupID int64) ([]spinBetEvent, error) {
	url := fmt.Sprintf("%s/rest/group/%d/events", s.baseURL, groupID)
	resp, err := s.client.Get(ctx, url, s.headers())
	if err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeNetwork, "failed to fetch group events", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "group events"); err != nil {
		return nil, err
	}

	var listing spinBetEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, NewAdapterError(s.Slug(), ErrCodeAPI, "failed to parse group events", err)
	}
	if err := s.checkEnvelope(listing.Result, "group events"); err != nil {
		return nil, err
	}
	return listing.Events, nil
}

func (s *SpinBet) checkStatus(resp *http.Response, what string) error {
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

func (s *SpinBet) checkEnvelope(result, what string) error {
	switch result {
	case spinBetResultOK:
		return nil
	case spinBetResultNotFound:
		return NewAdapterError(s.Slug(), ErrCodeInvalidEventID, fmt.Sprintf("upstream reported %s gone", what), nil)
	default:
		return NewAdapterError(s.Slug(), ErrCodeAPI, fmt.Sprintf("upstream result %q fetching %s", result, what), nil)
	}
}

// parseRate converts a string odds value. Unparseable rates become 0, which
// the mapping layer rejects as invalid odds.
func parseRate(rate string) float64 {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
