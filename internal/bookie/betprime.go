package bookie

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/models"
)

// canonicalProvider is the widget provider entry that carries the shared
// event ID on BetPrime payloads.
const canonicalProvider = "sr"

// BetPrime is the reference bookmaker adapter. Discovery walks the football
// line's category tree and lists events per competition; the canonical event
// ID is read off the "sr" widget entry. Competition listings that omit
// widgets force a per-event fetch.
type BetPrime struct {
	client  *Client
	baseURL string
	brand   string
	log     *logrus.Logger
}

type betPrimeLineResponse struct {
	Categories []betPrimeCategory `json:"categories"`
}

type betPrimeCategory struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Competitions []betPrimeCompetition `json:"competitions"`
}

type betPrimeCompetition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type betPrimeEventsResponse struct {
	Events []betPrimeEvent `json:"events"`
}

type betPrimeEventResponse struct {
	Event betPrimeEvent `json:"event"`
}

type betPrimeEvent struct {
	ID          string               `json:"id"`
	Home        string               `json:"home"`
	Away        string               `json:"away"`
	Kickoff     string               `json:"kickoff"`
	Competition *betPrimeCompetition `json:"competition"`
	Widgets     []betPrimeWidget     `json:"widgets"`
	Markets     []betPrimeMarket     `json:"markets"`
}

type betPrimeWidget struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

type betPrimeMarket struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Specifier string            `json:"specifier"`
	Groups    []string          `json:"groups"`
	Outcomes  []betPrimeOutcome `json:"outcomes"`
}

type betPrimeOutcome struct {
	Name   string  `json:"name"`
	Odds   float64 `json:"odds"`
	Active bool    `json:"active"`
}

// NewBetPrime creates the reference bookmaker adapter
func NewBetPrime(client *Client, baseURL, brand string, log *logrus.Logger) *BetPrime {
	return &BetPrime{
		client:  client,
		baseURL: baseURL,
		brand:   brand,
		log:     log,
	}
}

// Slug returns the bookmaker identifier
func (b *BetPrime) Slug() string {
	return models.BookmakerBetPrime
}

func (b *BetPrime) headers() map[string]string {
	return map[string]string{
		"User-Agent":      defaultUserAgent,
		"Accept-Language": "en-GB,en;q=0.9",
		"X-Brand":         b.brand,
	}
}

// DiscoverEvents walks the category tree and lists upcoming events per
// competition. Competitions that fail after retries are skipped so one bad
// listing cannot sink the whole platform's discovery.
func (b *BetPrime) DiscoverEvents(ctx context.Context) ([]DiscoveredEvent, error) {
	line, err := b.fetchLine(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var discovered []DiscoveredEvent
	for _, category := range line.Categories {
		for _, comp := range category.Competitions {
			events, err := b.fetchCompetitionEvents(ctx, comp.ID)
			if err != nil {
				b.log.WithFields(logrus.Fields{
					"platform":    b.Slug(),
					"competition": comp.ID,
					"error":       err.Error(),
				}).Warn("Skipping competition listing")
				continue
			}

			for _, ev := range events {
				kickoff, err := time.Parse(time.RFC3339, ev.Kickoff)
				if err != nil || !kickoff.After(now) {
					continue
				}

				canonical := canonicalIDFromWidgets(ev.Widgets)
				if canonical == "" {
					// listing omitted widgets; the event payload carries them
					full, err := b.fetchEventPayload(ctx, ev.ID)
					if err != nil {
						b.log.WithFields(logrus.Fields{
							"platform": b.Slug(),
							"event":    ev.ID,
							"error":    err.Error(),
						}).Debug("Could not resolve canonical ID")
						continue
					}
					canonical = canonicalIDFromWidgets(full.Widgets)
				}
				if canonical == "" {
					continue
				}

				discovered = append(discovered, DiscoveredEvent{
					CanonicalID:   canonical,
					NativeEventID: ev.ID,
					Kickoff:       kickoff.UTC(),
				})
			}
		}
	}
	return discovered, nil
}

// FetchEvent retrieves the full odds payload for one event
func (b *BetPrime) FetchEvent(ctx context.Context, nativeEventID string) (*RawEvent, error) {
	ev, err := b.fetchEventPayload(ctx, nativeEventID)
	if err != nil {
		return nil, err
	}

	kickoff, err := time.Parse(time.RFC3339, ev.Kickoff)
	if err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeAPI, fmt.Sprintf("unparseable kickoff %q", ev.Kickoff), err)
	}

	raw := &RawEvent{
		NativeEventID: ev.ID,
		CanonicalID:   canonicalIDFromWidgets(ev.Widgets),
		HomeTeam:      ev.Home,
		AwayTeam:      ev.Away,
		Kickoff:       kickoff.UTC(),
		Markets:       make([]RawMarket, 0, len(ev.Markets)),
	}
	if ev.Competition != nil {
		raw.TournamentID = ev.Competition.ID
		raw.TournamentName = ev.Competition.Name
	}

	for _, m := range ev.Markets {
		market := RawMarket{
			NativeMarketID: m.ID,
			Name:           m.Name,
			Param:          m.Specifier,
			Groups:         m.Groups,
			Outcomes:       make([]RawOutcome, 0, len(m.Outcomes)),
		}
		for _, o := range m.Outcomes {
			market.Outcomes = append(market.Outcomes, RawOutcome{
				Name:     o.Name,
				Odds:     o.Odds,
				IsActive: o.Active,
			})
		}
		raw.Markets = append(raw.Markets, market)
	}
	return raw, nil
}

// CheckHealth probes the line root
func (b *BetPrime) CheckHealth(ctx context.Context) bool {
	resp, err := b.client.Get(ctx, b.baseURL+"/line/football", b.headers())
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (b *BetPrime) fetchLine(ctx context.Context) (*betPrimeLineResponse, error) {
	resp, err := b.client.Get(ctx, b.baseURL+"/line/football", b.headers())
	if err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeNetwork, "failed to fetch line", err)
	}
	defer resp.Body.Close()

	if err := b.checkStatus(resp, "line"); err != nil {
		return nil, err
	}

	var line betPrimeLineResponse
	if err := json.NewDecoder(resp.Body).Decode(&line); err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeAPI, "failed to parse line response", err)
	}
	return &line, nil
}

func (b *BetPrime) fetchCompetitionEvents(ctx context.Context, competitionID string) ([]betPrimeEvent, error) {
	url := fmt.Sprintf("%s/competition/%s/events", b.baseURL, competitionID)
	resp, err := b.client.Get(ctx, url, b.headers())
	if err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeNetwork, "failed to fetch competition events", err)
	}
	defer resp.Body.Close()

	if err := b.checkStatus(resp, "competition events"); err != nil {
		return nil, err
	}

	var listing betPrimeEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeAPI, "failed to parse competition events", err)
	}
	return listing.Events, nil
}

func (b *BetPrime) fetchEventPayload(ctx context.Context, nativeEventID string) (*betPrimeEvent, error) {
	url := fmt.Sprintf("%s/event/%s", b.baseURL, nativeEventID)
	resp, err := b.client.Get(ctx, url, b.headers())
	if err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeNetwork, "failed to fetch event", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, NewAdapterError(b.Slug(), ErrCodeInvalidEventID, "event not found", nil)
	}
	if err := b.checkStatus(resp, "event"); err != nil {
		return nil, err
	}

	var payload betPrimeEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewAdapterError(b.Slug(), ErrCodeAPI, "failed to parse event payload", err)
	}
	return &payload.Event, nil
}

func (b *BetPrime) checkStatus(resp *http.Response, what string) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewAdapterError(b.Slug(), ErrCodeRateLimited, "rate limited", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewAdapterError(b.Slug(), ErrCodeAPI,
			fmt.Sprintf("unexpected status %d fetching %s: %s", resp.StatusCode, what, string(body)), nil)
	}
	return nil
}

func canonicalIDFromWidgets(widgets []betPrimeWidget) string {
	for _, w := range widgets {
		if w.Provider == canonicalProvider && w.EventID != "" {
			return w.EventID
		}
	}
	return ""
}
