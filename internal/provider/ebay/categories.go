package ebay

import "pawnshop-service/internal/models"

var categoryIDs = map[models.Category]string{
	models.CategoryJewelry:      "281",
	models.CategoryWatches:      "31387",
	models.CategoryElectronics:  "293",
	models.CategoryTools:        "631",
	models.CategoryFirearms:     "73956",
	models.CategoryMusical:      "619",
	models.CategoryGaming:       "1249",
	models.CategorySports:       "888",
	models.CategoryCollectibles: "1",
	models.CategoryAppliances:   "20710",
	models.CategoryVehicles:     "6001",
}

// CategoryID returns the marketplace category id for c. Other and unknown
// categories search across the whole site.
func CategoryID(c models.Category) (string, bool) {
	id, ok := categoryIDs[c]
	return id, ok
}
