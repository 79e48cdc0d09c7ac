package ebay

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/pricing"

	"github.com/google/uuid"
)

var simulatedConditions = []string{"New", "Like New", "Excellent", "Good", "Used"}

// Simulator produces plausible pricing when no marketplace credential is configured
type Simulator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSimulator creates a simulator; seed 0 seeds from the clock
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Price generates an estimate around the base price for query. Count is
// the simulated number of sold listings, which may exceed the sales returned.
func (s *Simulator) Price(query string) models.PricingResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := BasePrice(query)
	count := 5 + s.rnd.Intn(21)
	n := count
	if n > pricing.MaxRecentSales {
		n = pricing.MaxRecentSales
	}

	now := s.now()
	sales := make([]models.SaleObservation, 0, n)
	for i := 0; i < n; i++ {
		price := base * (0.85 + s.rnd.Float64()*0.30)
		daysAgo := 1 + s.rnd.Intn(30)
		sales = append(sales, models.SaleObservation{
			ID:        uuid.NewString(),
			Title:     query,
			Price:     price,
			SaleDate:  now.AddDate(0, 0, -daysAgo),
			Condition: simulatedConditions[s.rnd.Intn(len(simulatedConditions))],
		})
	}

	result := pricing.Aggregate(sales)
	result.Count = count
	result.Confidence = pricing.ConfidenceFor(count)
	result.Simulated = true
	return result
}

// BasePrice maps a query to a typical resale price by keyword
func BasePrice(query string) float64 {
	q := strings.ToLower(query)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("iphone"):
		switch {
		case has("15", "16"):
			return 750
		case has("14", "13"):
			return 550
		case has("12", "11"):
			return 350
		}
		return 250
	case has("ipad"):
		switch {
		case has("pro"):
			return 600
		case has("air"):
			return 400
		}
		return 300
	case has("macbook"):
		switch {
		case has("pro"):
			return 1200
		case has("air"):
			return 800
		}
		return 600
	case has("xbox", "playstation"):
		if has("series x", "ps5") {
			return 450
		}
		return 300
	case has("nintendo"):
		if has("switch") {
			return 250
		}
		return 150
	case has("rolex"):
		switch {
		case has("submariner", "daytona"):
			return 12000
		case has("datejust"):
			return 8000
		}
		return 6000
	case has("omega"):
		return 3500
	case has("tag heuer", "breitling"):
		return 2500
	case has("apple watch"):
		if has("ultra") {
			return 600
		}
		return 300
	case has("gold"):
		switch {
		case has("ring"):
			return 600
		case has("necklace", "chain"):
			return 800
		case has("bracelet"):
			return 500
		}
		return 400
	case has("diamond"):
		if has("ring") {
			return 1500
		}
		return 1000
	case has("dewalt", "milwaukee"):
		switch {
		case has("drill"):
			return 150
		case has("saw"):
			return 200
		}
		return 120
	case has("guitar"):
		if has("gibson", "fender") {
			return 1200
		}
		return 400
	case has("piano", "keyboard"):
		return 800
	}
	return 150
}
