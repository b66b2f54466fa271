package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// PriceSize is one ladder level.
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// RunnerLadder is the top of book for one selection as stored in
// MarketSnapshot.Runners.
type RunnerLadder struct {
	SelectionID int64       `json:"selection_id"`
	Back        []PriceSize `json:"back"`
	Lay         []PriceSize `json:"lay"`
}

func MarshalLadder(levels []PriceSize) datatypes.JSON {
	raw, err := json.Marshal(levels)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}

func MarshalRunnerLadders(runners []RunnerLadder) datatypes.JSON {
	raw, err := json.Marshal(runners)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}

func UnmarshalLadder(raw datatypes.JSON) []PriceSize {
	var levels []PriceSize
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &levels); err != nil {
		return nil
	}
	return levels
}

func UnmarshalRunnerLadders(raw datatypes.JSON) []RunnerLadder {
	var runners []RunnerLadder
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &runners); err != nil {
		return nil
	}
	return runners
}
