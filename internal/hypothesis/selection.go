package hypothesis

import (
	"regexp"
)

// Quote is one runner's best prices at evaluation time, after the price
// sanity filter (back in [1.10, 50] with both sides quoted).
type Quote struct {
	SelectionID int64
	Name        string
	Back        float64
	Lay         float64
	BackSize    float64
	LaySize     float64
	SpreadPct   float64
}

// Selection tags carried by hypotheses. Momentum selections resolve to
// the runner that moved; the rest resolve through the per-market-type
// rule table.
const (
	SelectSteamer   = "steamer"
	SelectDrifter   = "drifter"
	SelectBestValue = "best_value"
	SelectFavourite = "favourite"
)

type ruleKind int

const (
	ruleBestValue ruleKind = iota
	ruleFavourite
	rulePattern
	ruleSkip
)

// marketRule is the closed selection-variant for one market type. Unknown
// types get the skip variant, never an implicit default.
type marketRule struct {
	kind    ruleKind
	pattern *regexp.Regexp
}

var (
	reUnder15 = regexp.MustCompile(`^Under 1\.5`)
	reUnder25 = regexp.MustCompile(`^Under 2\.5`)
	reUnder35 = regexp.MustCompile(`^Under 3\.5`)
	reNo      = regexp.MustCompile(`^No$`)
)

func ruleFor(marketType string) marketRule {
	switch marketType {
	case "MATCH_ODDS", "DRAW_NO_BET", "DOUBLE_CHANCE", "CORRECT_SCORE":
		return marketRule{kind: ruleBestValue}
	case "OVER_UNDER_15":
		return marketRule{kind: rulePattern, pattern: reUnder15}
	case "OVER_UNDER_25":
		return marketRule{kind: rulePattern, pattern: reUnder25}
	case "OVER_UNDER_35":
		return marketRule{kind: rulePattern, pattern: reUnder35}
	case "BOTH_TEAMS_TO_SCORE":
		return marketRule{kind: rulePattern, pattern: reNo}
	default:
		// HALF_TIME_FULL_TIME, ASIAN_HANDICAP and anything unrecognized
		// are not traded.
		return marketRule{kind: ruleSkip}
	}
}

// bestValueBand bounds the odds considered for value backing: short
// favourites leave no margin, longshots are too noisy.
const (
	bestValueMin = 2.0
	bestValueMax = 6.0
)

// SelectRunner resolves a hypothesis's selection tag against a market's
// quotes. Momentum tags require the matched signal; a nil return means
// the market yields no tradeable runner for this hypothesis.
func SelectRunner(selection, marketType string, quotes []Quote, match *MatchResult) *Quote {
	switch selection {
	case SelectSteamer, SelectDrifter:
		if match == nil || match.Signal == nil {
			return nil
		}
		return quoteByID(quotes, match.Signal.RunnerID)
	case SelectFavourite:
		return favourite(quotes)
	case SelectBestValue:
		rule := ruleFor(marketType)
		switch rule.kind {
		case ruleBestValue:
			return bestValue(quotes)
		case ruleFavourite:
			return favourite(quotes)
		case rulePattern:
			return byPattern(quotes, rule.pattern)
		default:
			return nil
		}
	default:
		return nil
	}
}

func quoteByID(quotes []Quote, selectionID int64) *Quote {
	for i := range quotes {
		if quotes[i].SelectionID == selectionID {
			return &quotes[i]
		}
	}
	return nil
}

func favourite(quotes []Quote) *Quote {
	var best *Quote
	for i := range quotes {
		if best == nil || quotes[i].Back < best.Back {
			best = &quotes[i]
		}
	}
	return best
}

// bestValue picks the shortest-priced runner inside the value band: the
// strongest candidate still offering meaningful odds.
func bestValue(quotes []Quote) *Quote {
	var best *Quote
	for i := range quotes {
		q := &quotes[i]
		if q.Back < bestValueMin || q.Back > bestValueMax {
			continue
		}
		if best == nil || q.Back < best.Back {
			best = q
		}
	}
	return best
}

func byPattern(quotes []Quote, pattern *regexp.Regexp) *Quote {
	if pattern == nil {
		return nil
	}
	for i := range quotes {
		if pattern.MatchString(quotes[i].Name) {
			return &quotes[i]
		}
	}
	return nil
}
