package exchange

import (
	"time"
)

type Competition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
}

type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CountryCode string       `json:"country_code"`
	OpenDate    *time.Time   `json:"open_date"`
	Competition *Competition `json:"competition"`
}

type RunnerCatalogue struct {
	SelectionID  int64  `json:"selection_id"`
	RunnerName   string `json:"runner_name"`
	SortPriority int    `json:"sort_priority"`
}

// MarketCatalogue is the static description of one market: identity,
// type, schedule and runner list. Prices come from the book endpoint.
type MarketCatalogue struct {
	MarketID        string            `json:"market_id"`
	MarketName      string            `json:"market_name"`
	MarketType      string            `json:"market_type"`
	TotalMatched    float64           `json:"total_matched"`
	MarketStartTime *time.Time        `json:"market_start_time"`
	Event           *Event            `json:"event"`
	Runners         []RunnerCatalogue `json:"runners"`
}

type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type RunnerBook struct {
	SelectionID     int64       `json:"selection_id"`
	Status          string      `json:"status"`
	LastPriceTraded float64     `json:"last_price_traded"`
	Back            []PriceSize `json:"back"`
	Lay             []PriceSize `json:"lay"`
}

// MarketBook is one live order-book observation for a market.
type MarketBook struct {
	MarketID       string       `json:"market_id"`
	Status         string       `json:"status"`
	InPlay         bool         `json:"in_play"`
	TotalMatched   float64      `json:"total_matched"`
	TotalAvailable float64      `json:"total_available"`
	Runners        []RunnerBook `json:"runners"`
}

// Runner settlement statuses as reported by the results feed.
const (
	RunnerWinner  = "WINNER"
	RunnerLoser   = "LOSER"
	RunnerRemoved = "REMOVED"
)

type RunnerResult struct {
	SelectionID int64  `json:"selection_id"`
	Status      string `json:"status"`
}

// MarketResult is one settled (or voided) market from the results feed.
type MarketResult struct {
	MarketID           string         `json:"market_id"`
	Status             string         `json:"status"`
	Voided             bool           `json:"voided"`
	SettledAt          time.Time      `json:"settled_at"`
	WinningSelectionID *int64         `json:"winning_selection_id"`
	Runners            []RunnerResult `json:"runners"`
}
