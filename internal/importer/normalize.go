package importer

import (
	"strings"
	"time"

	"pawnshop-service/internal/models"

	"github.com/google/uuid"
)

const maxNameLength = 50

var nameSeparators = []string{",", "-", "–"}

type categoryRule struct {
	category models.Category
	keywords []string
}

// Evaluated top to bottom; the first matching rule wins, so "gold watch" is jewelry.
var categoryRules = []categoryRule{
	{models.CategoryJewelry, []string{"ring", "necklace", "bracelet", "gold", "diamond", "jewelry"}},
	{models.CategoryWatches, []string{"watch", "rolex", "omega"}},
	{models.CategoryElectronics, []string{"iphone", "ipad", "laptop", "tv", "phone", "computer"}},
	{models.CategoryGaming, []string{"xbox", "playstation", "ps5", "nintendo", "game"}},
	{models.CategoryMusical, []string{"guitar", "drum", "piano"}},
	{models.CategoryTools, []string{"drill", "saw", "tool"}},
	{models.CategoryFirearms, []string{"gun", "rifle", "pistol"}},
}

type statusRule struct {
	status   models.ItemStatus
	keywords []string
}

var statusRules = []statusRule{
	{models.StatusInStock, []string{"active", "current"}},
	{models.StatusSold, []string{"sold"}},
	{models.StatusRedeemed, []string{"redeem"}},
	{models.StatusForfeited, []string{"forfeit", "default"}},
}

// ToItem converts an import row into a new pawn item
func ToItem(row models.ImportRow, now time.Time) models.Item {
	item := models.Item{
		ID:              uuid.NewString(),
		ItemID:          row.TicketNumber,
		ItemName:        ExtractItemName(row.ItemDescription),
		Category:        GuessCategory(row.ItemDescription),
		Description:     row.ItemDescription,
		TransactionType: models.TransactionPawn,
		TransactionDate: now,
		CustomerName:    row.CustomerName,
		DueDate:         row.DueDate,
		Status:          MapStatus(row.Status),
		CreatedAt:       now,
		ModifiedAt:      now,
	}
	if row.Date != nil {
		item.TransactionDate = *row.Date
	}
	if row.LoanAmount != nil {
		item.PurchasePrice = *row.LoanAmount
	}
	return item
}

// ExtractItemName cuts the description at the first separator present,
// trying ",", "-" and "–" in that order, then caps it at 50 characters.
func ExtractItemName(description string) string {
	name := description
	for _, sep := range nameSeparators {
		if idx := strings.Index(name, sep); idx >= 0 {
			name = name[:idx]
			break
		}
	}

	runes := []rune(name)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return strings.TrimSpace(string(runes))
}

// MapStatus maps free-form status text onto an item status
func MapStatus(status string) models.ItemStatus {
	s := strings.ToLower(status)
	for _, rule := range statusRules {
		if containsAny(s, rule.keywords) {
			return rule.status
		}
	}
	return models.StatusInStock
}

// GuessCategory picks a category from keywords in the description
func GuessCategory(description string) models.Category {
	desc := strings.ToLower(description)
	for _, rule := range categoryRules {
		if containsAny(desc, rule.keywords) {
			return rule.category
		}
	}
	return models.CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
