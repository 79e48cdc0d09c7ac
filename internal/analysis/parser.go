package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"pawnshop-service/internal/models"
)

var (
	marketValuePattern = regexp.MustCompile(`(?i)market value[:\s]*\$?([\d,]+)`)
	loanPattern        = regexp.MustCompile(`(?i)loan[:\s]*\$?([\d,]+)`)
	buyPricePattern    = regexp.MustCompile(`(?i)buy price[:\s]*\$?([\d,]+)`)

	// tried in order, first match wins
	authenticityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)authenticity[:\s]*([\d]+)%`),
		regexp.MustCompile(`(?i)score[:\s]*([\d]+)`),
		regexp.MustCompile(`(?i)([\d]+)%\s*authentic`),
	}

	conditionKeywords = []struct {
		keyword   string
		condition models.Condition
	}{
		{"excellent", models.ConditionExcellent},
		{"good", models.ConditionGood},
		{"fair", models.ConditionFair},
		{"poor", models.ConditionPoor},
		{"damaged", models.ConditionDamaged},
	}
)

// expected sale price as a fraction of market value
const saleRatio = 0.9

// Result holds the fields extracted from analysis text. Nil and empty
// values mean the text did not contain them.
type Result struct {
	MarketValue        *float64
	SuggestedLoan      *float64
	SuggestedBuyPrice  *float64
	AuthenticityScore  *int
	AuthenticityStatus models.AuthenticityStatus
	Condition          models.Condition
	RiskLevel          models.RiskLevel
}

// Parse extracts structured fields from free-form analysis text
func Parse(text string) Result {
	r := Result{
		MarketValue:       ExtractValue(text, marketValuePattern),
		SuggestedLoan:     ExtractValue(text, loanPattern),
		SuggestedBuyPrice: ExtractValue(text, buyPricePattern),
		AuthenticityScore: ExtractAuthenticityScore(text),
		Condition:         ExtractCondition(text),
		RiskLevel:         ExtractRiskLevel(text),
	}
	if r.AuthenticityScore != nil {
		r.AuthenticityStatus = StatusFromScore(*r.AuthenticityScore)
	}
	return r
}

// Apply merges the extracted fields into the item, leaving fields the
// text did not produce untouched, and recomputes the profit margin when a
// market value is known.
func (r Result) Apply(item *models.Item) {
	if r.MarketValue != nil {
		item.MarketValue = r.MarketValue
	}
	if r.SuggestedLoan != nil {
		item.SuggestedLoanAmount = r.SuggestedLoan
	}
	if r.SuggestedBuyPrice != nil {
		item.SuggestedBuyPrice = r.SuggestedBuyPrice
	}
	if r.AuthenticityScore != nil {
		item.AuthenticityScore = r.AuthenticityScore
		item.AuthenticityStatus = r.AuthenticityStatus
	}
	if r.Condition != "" {
		item.Condition = r.Condition
	}
	if r.RiskLevel != "" {
		item.RiskLevel = r.RiskLevel
	}
	if r.MarketValue != nil {
		if margin, ok := ProfitMargin(*r.MarketValue, item.PurchasePrice); ok {
			item.ProfitMargin = &margin
		}
	}
}

// ExtractValue returns the first number captured by pattern, with
// thousands separators removed.
func ExtractValue(text string, pattern *regexp.Regexp) *float64 {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractAuthenticityScore reads an explicit score or falls back to keywords
func ExtractAuthenticityScore(text string) *int {
	for _, p := range authenticityPatterns {
		if v := ExtractValue(text, p); v != nil {
			score := int(*v)
			return &score
		}
	}

	lower := strings.ToLower(text)
	var score int
	switch {
	case strings.Contains(lower, "authentic") && !strings.Contains(lower, "questionable"):
		score = 85
	case strings.Contains(lower, "likely authentic"):
		score = 75
	case strings.Contains(lower, "questionable"):
		score = 50
	case strings.Contains(lower, "fake") || strings.Contains(lower, "counterfeit"):
		score = 20
	default:
		return nil
	}
	return &score
}

// StatusFromScore bands a 0-100 score into an authenticity status
func StatusFromScore(score int) models.AuthenticityStatus {
	switch {
	case score >= 90 && score <= 100:
		return models.AuthenticityAuthentic
	case score >= 75 && score < 90:
		return models.AuthenticityLikelyAuthentic
	case score >= 50 && score < 75:
		return models.AuthenticityQuestionable
	case score >= 25 && score < 50:
		return models.AuthenticityLikelyFake
	case score >= 0 && score < 25:
		return models.AuthenticityFake
	default:
		return models.AuthenticityUnknown
	}
}

// ExtractCondition returns the first condition keyword found, in severity order
func ExtractCondition(text string) models.Condition {
	lower := strings.ToLower(text)
	for _, c := range conditionKeywords {
		if strings.Contains(lower, c.keyword) {
			return c.condition
		}
	}
	return ""
}

// ExtractRiskLevel never returns an empty level; text without risk
// wording falls back to authenticity hints and then to low.
func ExtractRiskLevel(text string) models.RiskLevel {
	lower := strings.ToLower(text)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("high risk", "critical"):
		return models.RiskHigh
	case has("medium risk", "moderate"):
		return models.RiskMedium
	case has("low risk", "minimal"):
		return models.RiskLow
	case has("fake", "counterfeit"):
		return models.RiskHigh
	case has("questionable"):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ProfitMargin is the expected margin selling at 90% of market value.
// It is undefined for a zero purchase price.
func ProfitMargin(marketValue, purchasePrice float64) (float64, bool) {
	if purchasePrice == 0 {
		return 0, false
	}
	return (saleRatio*marketValue - purchasePrice) / purchasePrice * 100, true
}
