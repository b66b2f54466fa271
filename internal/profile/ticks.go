package profile

// Exchange tick increment table: (upper price bound, increment).
var tickIncrements = [...]struct {
	maxPrice  float64
	increment float64
}{
	{2.00, 0.01},
	{3.00, 0.02},
	{4.00, 0.05},
	{6.00, 0.10},
	{10.00, 0.20},
	{20.00, 0.50},
	{30.00, 1.00},
	{50.00, 2.00},
	{100.00, 5.00},
	{1000.00, 10.00},
}

func TickSize(price float64) float64 {
	for _, row := range tickIncrements {
		if price <= row.maxPrice {
			return row.increment
		}
	}
	return 10.00
}

// SpreadTicks measures the back/lay spread in tick increments at the mid
// price. Crossed or empty books yield 0.
func SpreadTicks(backPrice, layPrice float64) float64 {
	if backPrice <= 0 || layPrice <= 0 {
		return 0
	}
	spread := layPrice - backPrice
	if spread <= 0 {
		return 0
	}
	mid := (backPrice + layPrice) / 2
	return spread / TickSize(mid)
}
