package models

import (
	"strings"
	"time"
)

// Category is the merchandise category of an item
type Category string

const (
	CategoryJewelry      Category = "Jewelry"
	CategoryWatches      Category = "Watches"
	CategoryElectronics  Category = "Electronics"
	CategoryTools        Category = "Tools"
	CategoryFirearms     Category = "Firearms"
	CategoryMusical      Category = "Musical Instruments"
	CategoryGaming       Category = "Gaming"
	CategorySports       Category = "Sports Equipment"
	CategoryCollectibles Category = "Collectibles"
	CategoryAppliances   Category = "Appliances"
	CategoryVehicles     Category = "Vehicles"
	CategoryOther        Category = "Other"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryJewelry,
	CategoryWatches,
	CategoryElectronics,
	CategoryTools,
	CategoryFirearms,
	CategoryMusical,
	CategoryGaming,
	CategorySports,
	CategoryCollectibles,
	CategoryAppliances,
	CategoryVehicles,
	CategoryOther,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ItemStatus is the lifecycle status of an item
type ItemStatus string

const (
	StatusInStock       ItemStatus = "In Stock"
	StatusSold          ItemStatus = "Sold"
	StatusRedeemed      ItemStatus = "Redeemed"
	StatusForfeited     ItemStatus = "Forfeited"
	StatusOnHold        ItemStatus = "On Hold"
	StatusPendingReview ItemStatus = "Pending Review"
)

// TransactionType describes how the shop acquired an item
type TransactionType string

const (
	TransactionPawn        TransactionType = "Pawn"
	TransactionBuy         TransactionType = "Buy"
	TransactionRetail      TransactionType = "Retail"
	TransactionConsignment TransactionType = "Consignment"
)

// Condition is the physical condition of an item
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
	ConditionDamaged   Condition = "Damaged"
	ConditionUnknown   Condition = "Unknown"
)

// AuthenticityStatus is derived from an authenticity score
type AuthenticityStatus string

const (
	AuthenticityAuthentic       AuthenticityStatus = "Authentic"
	AuthenticityLikelyAuthentic AuthenticityStatus = "Likely Authentic"
	AuthenticityQuestionable    AuthenticityStatus = "Questionable"
	AuthenticityLikelyFake      AuthenticityStatus = "Likely Fake"
	AuthenticityFake            AuthenticityStatus = "Fake"
	AuthenticityUnknown         AuthenticityStatus = "Unknown"
)

// RiskLevel is the assessed risk of accepting an item
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Item represents one inventoried pawn or sale transaction
type Item struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"item_id,omitempty"`
	ItemName        string          `json:"item_name"`
	Category        Category        `json:"category"`
	Brand           string          `json:"brand,omitempty"`
	Model           string          `json:"model,omitempty"`
	SerialNumber    string          `json:"serial_number,omitempty"`
	Description     string          `json:"description"`
	TransactionType TransactionType `json:"transaction_type"`
	TransactionDate time.Time       `json:"transaction_date"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`

	PurchasePrice       float64  `json:"purchase_price"`
	MarketValue         *float64 `json:"market_value,omitempty"`
	SuggestedLoanAmount *float64 `json:"suggested_loan_amount,omitempty"`
	SuggestedBuyPrice   *float64 `json:"suggested_buy_price,omitempty"`
	ActualSalePrice     *float64 `json:"actual_sale_price,omitempty"`
	Profit              *float64 `json:"profit,omitempty"`
	ProfitMargin        *float64 `json:"profit_margin,omitempty"`

	AIAnalysis         string             `json:"ai_analysis,omitempty"`
	AuthenticityScore  *int               `json:"authenticity_score,omitempty"`
	AuthenticityStatus AuthenticityStatus `json:"authenticity_status,omitempty"`
	Condition          Condition          `json:"condition,omitempty"`
	RiskLevel          RiskLevel          `json:"risk_level,omitempty"`

	EbayAveragePrice    *float64          `json:"ebay_average_price,omitempty"`
	EbayRecentSales     []SaleObservation `json:"ebay_recent_sales,omitempty"`
	EbayListingCount    *int              `json:"ebay_listing_count,omitempty"`
	LastPriceUpdate     *time.Time        `json:"last_price_update,omitempty"`
	EstimatedTimeToSell *int              `json:"estimated_time_to_sell,omitempty"`

	Status         ItemStatus `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	RedemptionDate *time.Time `json:"redemption_date,omitempty"`
	SaleDate       *time.Time `json:"sale_date,omitempty"`

	Notes        string   `json:"notes,omitempty"`
	EmployeeName string   `json:"employee_name,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	IsFlagged    bool     `json:"is_flagged"`
	FlagReason   string   `json:"flag_reason,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// CalculateProfit derives profit and margin from the actual sale price
func (i *Item) CalculateProfit() {
	if i.ActualSalePrice == nil {
		return
	}
	profit := *i.ActualSalePrice - i.PurchasePrice
	i.Profit = &profit
	if i.PurchasePrice > 0 {
		margin := profit / i.PurchasePrice * 100
		i.ProfitMargin = &margin
	}
}

// CurrentPrice returns the market value, falling back to the comparable average
func (i *Item) CurrentPrice() (float64, bool) {
	if i.MarketValue != nil {
		return *i.MarketValue, true
	}
	if i.EbayAveragePrice != nil {
		return *i.EbayAveragePrice, true
	}
	return 0, false
}

// PricingQuery is the marketplace search text for an item
func (i *Item) PricingQuery() string {
	return strings.Join(strings.Fields(i.Brand+" "+i.Model+" "+i.ItemName), " ")
}

// ImportRow holds the raw fields of one ingested record
type ImportRow struct {
	TicketNumber    string
	Date            *time.Time
	CustomerName    string
	ItemDescription string
	LoanAmount      *float64
	InterestRate    *float64
	DueDate         *time.Time
	Status          string
}
