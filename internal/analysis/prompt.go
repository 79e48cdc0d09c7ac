package analysis

import (
	"fmt"
	"strings"

	"pawnshop-service/internal/models"
)

// BuildPrompt renders the appraisal request for one item
func BuildPrompt(item *models.Item) string {
	var sb strings.Builder

	sb.WriteString("You are an expert pawn shop analyst. Analyze this item:\n\n")
	fmt.Fprintf(&sb, "Item: %s\n", item.ItemName)
	fmt.Fprintf(&sb, "Category: %s\n", item.Category)
	if item.Brand != "" {
		fmt.Fprintf(&sb, "Brand: %s\n", item.Brand)
	}
	if item.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", item.Model)
	}
	fmt.Fprintf(&sb, "Description: %s\n", item.Description)
	fmt.Fprintf(&sb, "Purchase Price: $%.2f\n", item.PurchasePrice)

	sb.WriteString(`
Provide a concise professional analysis with:
1. Market value estimate
2. Recommended loan amount (25-50% of value)
3. Recommended buy price (50-70% of value)
4. Authenticity assessment (score 0-100)
5. Condition estimate
6. Profit potential
7. Risk factors

Format your response as structured data we can parse.`)

	return sb.String()
}
