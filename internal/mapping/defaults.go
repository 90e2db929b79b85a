package mapping

import "github.com/yourusername/oddswatch/internal/models"

func strPtr(s string) *string { return &s }

// Defaults returns the compiled-in mapping table covering the core football
// markets on all three bookmakers. DB overrides replace entries per
// canonical market ID; anything not listed here and not overridden lands in
// the unmapped log.
//
// Both team-total rows share the SpinBet prefix S_TEAMTOTAL: that upstream
// quotes home and away totals in one combined market, split apart by the
// SpinBet mapper.
func Defaults() []*models.MarketMapping {
	return []*models.MarketMapping{
		{
			CanonicalMarketID: models.MarketOneXTwo,
			Name:              "Match Result",
			BetPrimeMarketID:  strPtr("1"),
			StakeOneMarketID:  strPtr("match_winner"),
			SpinBetKeyPrefix:  strPtr("S_1X2"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "1", BetPrimeName: strPtr("1"), StakeOneName: strPtr("Home"), SpinBetSuffix: strPtr("1"), Position: 0},
				{CanonicalName: "X", BetPrimeName: strPtr("X"), StakeOneName: strPtr("Draw"), SpinBetSuffix: strPtr("X"), Position: 1},
				{CanonicalName: "2", BetPrimeName: strPtr("2"), StakeOneName: strPtr("Away"), SpinBetSuffix: strPtr("2"), Position: 2},
			},
		},
		{
			CanonicalMarketID: models.MarketDoubleChance,
			Name:              "Double Chance",
			BetPrimeMarketID:  strPtr("10"),
			StakeOneMarketID:  strPtr("double_chance"),
			SpinBetKeyPrefix:  strPtr("S_DBLCHANCE"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "1X", BetPrimeName: strPtr("1X"), StakeOneName: strPtr("Home or Draw"), SpinBetSuffix: strPtr("1X"), Position: 0},
				{CanonicalName: "12", BetPrimeName: strPtr("12"), StakeOneName: strPtr("Home or Away"), SpinBetSuffix: strPtr("12"), Position: 1},
				{CanonicalName: "X2", BetPrimeName: strPtr("X2"), StakeOneName: strPtr("Draw or Away"), SpinBetSuffix: strPtr("X2"), Position: 2},
			},
		},
		{
			CanonicalMarketID: models.MarketDrawNoBet,
			Name:              "Draw No Bet",
			BetPrimeMarketID:  strPtr("11"),
			StakeOneMarketID:  strPtr("draw_no_bet"),
			SpinBetKeyPrefix:  strPtr("S_DNB"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "1", BetPrimeName: strPtr("1"), StakeOneName: strPtr("Home"), SpinBetSuffix: strPtr("1"), Position: 0},
				{CanonicalName: "2", BetPrimeName: strPtr("2"), StakeOneName: strPtr("Away"), SpinBetSuffix: strPtr("2"), Position: 1},
			},
		},
		{
			CanonicalMarketID: models.MarketBTTS,
			Name:              "Both Teams To Score",
			BetPrimeMarketID:  strPtr("29"),
			StakeOneMarketID:  strPtr("both_teams_to_score"),
			SpinBetKeyPrefix:  strPtr("S_BTTS"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "YES", BetPrimeName: strPtr("Yes"), StakeOneName: strPtr("Yes"), SpinBetSuffix: strPtr("YES"), Position: 0},
				{CanonicalName: "NO", BetPrimeName: strPtr("No"), StakeOneName: strPtr("No"), SpinBetSuffix: strPtr("NO"), Position: 1},
			},
		},
		{
			CanonicalMarketID: models.MarketTotals,
			Name:              "Total Goals",
			BetPrimeMarketID:  strPtr("18"),
			StakeOneMarketID:  strPtr("total_goals"),
			SpinBetKeyPrefix:  strPtr("S_TOTAL"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "OVER", BetPrimeName: strPtr("Over"), StakeOneName: strPtr("Over"), SpinBetSuffix: strPtr("OVER"), Position: 0},
				{CanonicalName: "UNDER", BetPrimeName: strPtr("Under"), StakeOneName: strPtr("Under"), SpinBetSuffix: strPtr("UNDER"), Position: 1},
			},
		},
		{
			CanonicalMarketID: models.MarketTeamTotalsHome,
			Name:              "Home Team Total Goals",
			BetPrimeMarketID:  strPtr("19"),
			StakeOneMarketID:  strPtr("home_team_total"),
			SpinBetKeyPrefix:  strPtr("S_TEAMTOTAL"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "OVER", BetPrimeName: strPtr("Over"), StakeOneName: strPtr("Over"), SpinBetSuffix: strPtr("HOME_OVER"), Position: 0},
				{CanonicalName: "UNDER", BetPrimeName: strPtr("Under"), StakeOneName: strPtr("Under"), SpinBetSuffix: strPtr("HOME_UNDER"), Position: 1},
			},
		},
		{
			CanonicalMarketID: models.MarketTeamTotalsAway,
			Name:              "Away Team Total Goals",
			BetPrimeMarketID:  strPtr("20"),
			StakeOneMarketID:  strPtr("away_team_total"),
			SpinBetKeyPrefix:  strPtr("S_TEAMTOTAL"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "OVER", BetPrimeName: strPtr("Over"), StakeOneName: strPtr("Over"), SpinBetSuffix: strPtr("AWAY_OVER"), Position: 0},
				{CanonicalName: "UNDER", BetPrimeName: strPtr("Under"), StakeOneName: strPtr("Under"), SpinBetSuffix: strPtr("AWAY_UNDER"), Position: 1},
			},
		},
		{
			CanonicalMarketID: models.MarketHandicapEuropean,
			Name:              "European Handicap",
			BetPrimeMarketID:  strPtr("14"),
			StakeOneMarketID:  strPtr("european_handicap"),
			SpinBetKeyPrefix:  strPtr("S_HCP"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "1", BetPrimeName: strPtr("1"), StakeOneName: strPtr("Home"), SpinBetSuffix: strPtr("1"), Position: 0},
				{CanonicalName: "X", BetPrimeName: strPtr("X"), StakeOneName: strPtr("Draw"), SpinBetSuffix: strPtr("X"), Position: 1},
				{CanonicalName: "2", BetPrimeName: strPtr("2"), StakeOneName: strPtr("Away"), SpinBetSuffix: strPtr("2"), Position: 2},
			},
		},
		{
			CanonicalMarketID: models.MarketHandicapAsian,
			Name:              "Asian Handicap",
			BetPrimeMarketID:  strPtr("16"),
			StakeOneMarketID:  strPtr("asian_handicap"),
			SpinBetKeyPrefix:  strPtr("S_AHCP"),
			IsActive:          true,
			Outcomes: []models.OutcomeMapping{
				{CanonicalName: "1", BetPrimeName: strPtr("1"), StakeOneName: strPtr("Home"), SpinBetSuffix: strPtr("1"), Position: 0},
				{CanonicalName: "2", BetPrimeName: strPtr("2"), StakeOneName: strPtr("Away"), SpinBetSuffix: strPtr("2"), Position: 1},
			},
		},
	}
}
