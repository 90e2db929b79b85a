// Package helpers provides shared plumbing for the integration and e2e
// suites: a mutable odds fixture and mock bookmaker upstreams that serve it
// in each platform's wire format.
package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// BookOdds is one bookmaker's current quotes for the fixture event: the
// match result triple and the 2.5-goal total pair.
type BookOdds struct {
	Home  float64
	Draw  float64
	Away  float64
	Over  float64
	Under float64
}

// EventFixture drives the mock upstreams. Every fixture gets fresh canonical
// and native event IDs so suites can re-run against a shared database
// without colliding with rows from earlier runs. Odds may be swapped between
// scrape cycles with SetOdds; the servers always serve the current values.
type EventFixture struct {
	CanonicalID string
	Home        string
	Away        string
	Kickoff     time.Time

	BetPrimeEventID string
	StakeOneEventID string
	SpinBetEventID  int64

	mu   sync.Mutex
	odds map[string]BookOdds
}

// NewEventFixture creates the fixture with realistic opening prices on all
// three platforms
func NewEventFixture() *EventFixture {
	n := time.Now().UnixNano() % 100000000
	canonical := strconv.FormatInt(4000000000+n, 10)

	return &EventFixture{
		CanonicalID:     canonical,
		Home:            "Arsenal",
		Away:            "Chelsea",
		Kickoff:         time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		BetPrimeEventID: "bp-ev-" + canonical,
		StakeOneEventID: "sr" + canonical,
		SpinBetEventID:  900000000 + n,
		odds: map[string]BookOdds{
			"bp": {Home: 2.00, Draw: 3.40, Away: 3.80, Over: 1.85, Under: 1.95},
			"s1": {Home: 2.02, Draw: 3.35, Away: 3.75, Over: 1.87, Under: 1.93},
			"s2": {Home: 1.98, Draw: 3.45, Away: 3.85, Over: 1.83, Under: 1.97},
		},
	}
}

// Odds returns the bookmaker's current quotes
func (f *EventFixture) Odds(slug string) BookOdds {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.odds[slug]
}

// SetOdds replaces the bookmaker's quotes, effective on the next request
func (f *EventFixture) SetOdds(slug string, odds BookOdds) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.odds[slug] = odds
}

// MockBetPrimeServer serves the reference bookmaker's line API for the
// fixture event: the category tree, one competition listing, and the full
// event payload with the canonical ID on the "sr" widget.
func MockBetPrimeServer(t *testing.T, fx *EventFixture) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/line/football", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"categories":[{"id":"cat-en","name":"England","competitions":[{"id":"c-pl","name":"Premier League"}]}]}`)
	})
	mux.HandleFunc("/competition/c-pl/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"events":[{"id":%q,"home":%q,"away":%q,"kickoff":%q,"widgets":[{"provider":"sr","event_id":%q}]}]}`,
			fx.BetPrimeEventID, fx.Home, fx.Away, fx.Kickoff.Format(time.RFC3339), fx.CanonicalID)
	})
	mux.HandleFunc("/event/"+fx.BetPrimeEventID, func(w http.ResponseWriter, r *http.Request) {
		odds := fx.Odds("bp")
		fmt.Fprintf(w, `{"event":{
			"id":%q,"home":%q,"away":%q,"kickoff":%q,
			"competition":{"id":"c-pl","name":"Premier League"},
			"widgets":[{"provider":"sr","event_id":%q}],
			"markets":[
				{"id":"1","name":"Match Result","outcomes":[
					{"name":"1","odds":%.2f,"active":true},
					{"name":"X","odds":%.2f,"active":true},
					{"name":"2","odds":%.2f,"active":true}
				]},
				{"id":"18","name":"Total Goals","specifier":"2.5","outcomes":[
					{"name":"Over","odds":%.2f,"active":true},
					{"name":"Under","odds":%.2f,"active":true}
				]}
			]}}`,
			fx.BetPrimeEventID, fx.Home, fx.Away, fx.Kickoff.Format(time.RFC3339), fx.CanonicalID,
			odds.Home, odds.Draw, odds.Away, odds.Over, odds.Under)
	})
	return httptest.NewServer(mux)
}

// MockStakeOneServer serves the first competitor's API for the fixture
// event. The native event ID carries the canonical ID behind the "sr"
// prefix.
func MockStakeOneServer(t *testing.T, fx *EventFixture) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tournaments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tournaments":[{"id":555,"name":"Premier League"}]}`)
	})
	mux.HandleFunc("/api/v1/tournaments/555/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"events":[{"id":%q,"homeTeam":%q,"awayTeam":%q,"startTime":%q}]}`,
			fx.StakeOneEventID, fx.Home, fx.Away, fx.Kickoff.Format(time.RFC3339))
	})
	mux.HandleFunc("/api/v1/events/"+fx.StakeOneEventID, func(w http.ResponseWriter, r *http.Request) {
		odds := fx.Odds("s1")
		fmt.Fprintf(w, `{
			"id":%q,"homeTeam":%q,"awayTeam":%q,"startTime":%q,
			"tournament":{"id":555,"name":"Premier League"},
			"markets":[
				{"marketId":"match_winner","marketName":"Match Winner","selections":[
					{"name":"Home","price":%.2f,"active":true},
					{"name":"Draw","price":%.2f,"active":true},
					{"name":"Away","price":%.2f,"active":true}
				]},
				{"marketId":"total_goals","marketName":"Total Goals","param":"2.5","selections":[
					{"name":"Over","price":%.2f,"active":true},
					{"name":"Under","price":%.2f,"active":true}
				]}
			]}`,
			fx.StakeOneEventID, fx.Home, fx.Away, fx.Kickoff.Format(time.RFC3339),
			odds.Home, odds.Draw, odds.Away, odds.Over, odds.Under)
	})
	return httptest.NewServer(mux)
}

// MockSpinBetServer serves the second competitor's API for the fixture
// event: the nested group hierarchy, the group listing with the canonical ID
// in betradar_id, and the event payload with structured keys and string
// rates.
func MockSpinBetServer(t *testing.T, fx *EventFixture) *httptest.Server {
	t.Helper()

	nativeID := strconv.FormatInt(fx.SpinBetEventID, 10)
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/groups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"OK","groups":[{"id":1,"name":"Football","groups":[{"id":17,"name":"England. Premier League"}]}]}`)
	})
	mux.HandleFunc("/rest/group/17/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result":"OK","events":[{"id":%d,"betradar_id":%s,"team1":%q,"team2":%q,"start_ts":%d}]}`,
			fx.SpinBetEventID, fx.CanonicalID, fx.Home, fx.Away, fx.Kickoff.Unix())
	})
	mux.HandleFunc("/rest/event/"+nativeID, func(w http.ResponseWriter, r *http.Request) {
		odds := fx.Odds("s2")
		fmt.Fprintf(w, `{"result":"OK","event":{
			"id":%d,"betradar_id":%s,"team1":%q,"team2":%q,"start_ts":%d,
			"group":{"id":17,"name":"England. Premier League"},
			"markets":[
				{"key":"S_1X2","name":"1X2","odds":[
					{"key":"S_1X2_1","name":"W1","rate":"%.2f","blocked":false},
					{"key":"S_1X2_X","name":"X","rate":"%.2f","blocked":false},
					{"key":"S_1X2_2","name":"W2","rate":"%.2f","blocked":false}
				]},
				{"key":"S_TOTAL@2.5","name":"Total","odds":[
					{"key":"S_TOTAL@2.5_OVER","name":"Over","rate":"%.2f","blocked":false},
					{"key":"S_TOTAL@2.5_UNDER","name":"Under","rate":"%.2f","blocked":false}
				]}
			]}}`,
			fx.SpinBetEventID, fx.CanonicalID, fx.Home, fx.Away, fx.Kickoff.Unix(),
			odds.Home, odds.Draw, odds.Away, odds.Over, odds.Under)
	})
	return httptest.NewServer(mux)
}

// WaitForCondition polls until the condition holds or the timeout elapses.
// Used to wait out the write queue's background flush.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.Fail(t, "condition not met within timeout", message)
}
