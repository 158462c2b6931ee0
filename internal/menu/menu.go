package menu

import "github.com/shopspring/decimal"

// Item is a single entry of the cafe menu.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Allergens   string          `json:"allergens,omitempty"`
	Image       string          `json:"image,omitempty"`
}

// DefaultItems is the built-in menu used when no menu file or database is
// configured.
func DefaultItems() []Item {
	return []Item{
		{ID: "espresso", Name: "Classic Espresso", Category: "coffee", Price: decimal.RequireFromString("2.95"), Description: "Rich, bold espresso shot from our signature dark roast.", Allergens: "None"},
		{ID: "americano", Name: "Americano", Category: "coffee", Price: decimal.RequireFromString("3.45"), Description: "Espresso diluted with hot water.", Allergens: "None"},
		{ID: "cappuccino", Name: "Cappuccino", Category: "coffee", Price: decimal.RequireFromString("4.25"), Description: "Espresso, steamed milk and velvety foam.", Allergens: "Dairy"},
		{ID: "latte", Name: "Caffe Latte", Category: "coffee", Price: decimal.RequireFromString("4.75"), Description: "Smooth espresso with steamed milk.", Allergens: "Dairy"},
		{ID: "iced_coffee", Name: "Iced Coffee", Category: "cold_drinks", Price: decimal.RequireFromString("3.95"), Description: "Cold brew over ice.", Allergens: "None"},
		{ID: "berry_smoothie", Name: "Berry Smoothie", Category: "cold_drinks", Price: decimal.RequireFromString("5.50"), Description: "Mixed berries, banana and yogurt.", Allergens: "Dairy"},
		{ID: "avocado_toast", Name: "Avocado Toast", Category: "breakfast", Price: decimal.RequireFromString("8.95"), Description: "Sourdough, smashed avocado, chili flakes.", Allergens: "Gluten"},
		{ID: "croissant", Name: "Butter Croissant", Category: "desserts", Price: decimal.RequireFromString("3.25"), Description: "Flaky, baked fresh every morning.", Allergens: "Gluten, Dairy"},
	}
}
