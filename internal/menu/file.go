package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// fileItem is the on-disk shape of a menu entry. Prices may be numbers or
// strings such as "4.75" or "$4.75".
type fileItem struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Price       any    `json:"price" yaml:"price"`
	Description string `json:"description" yaml:"description"`
	Allergens   string `json:"allergens" yaml:"allergens"`
	Image       string `json:"image" yaml:"image"`
}

// LoadFile reads a menu from a JSON or YAML file. The document is either a
// list of items or an object mapping category names to item lists; in the
// latter form the key becomes the item category.
func LoadFile(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var (
		byCategory map[string][]fileItem
		list       []fileItem
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &byCategory); err != nil {
			byCategory = nil
			if err := yaml.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("parse menu %s: %w", path, err)
			}
		}
	default:
		if err := decodeJSON(raw, &byCategory); err != nil {
			byCategory = nil
			if err := decodeJSON(raw, &list); err != nil {
				return nil, fmt.Errorf("parse menu %s: %w", path, err)
			}
		}
	}

	if byCategory != nil {
		cats := make([]string, 0, len(byCategory))
		for c := range byCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			for _, fi := range byCategory[c] {
				if fi.Category == "" {
					fi.Category = c
				}
				list = append(list, fi)
			}
		}
	}

	items := make([]Item, 0, len(list))
	for _, fi := range list {
		if fi.ID == "" {
			return nil, fmt.Errorf("menu %s: item %q has no id", path, fi.Name)
		}
		price, err := parsePrice(fi.Price)
		if err != nil {
			return nil, fmt.Errorf("menu %s: item %s: %w", path, fi.ID, err)
		}
		items = append(items, Item{
			ID:          fi.ID,
			Name:        fi.Name,
			Category:    fi.Category,
			Price:       price,
			Description: fi.Description,
			Allergens:   fi.Allergens,
			Image:       fi.Image,
		})
	}
	return items, nil
}

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// parsePrice accepts whole cents only; menu_items stores NUMERIC(10,2).
func parsePrice(v any) (decimal.Decimal, error) {
	p, err := rawPrice(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !p.Equal(p.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("price %s has more than 2 decimal places", p)
	}
	return p, nil
}

func rawPrice(v any) (decimal.Decimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing price")
	case json.Number:
		return decimal.NewFromString(p.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "$")))
	case int:
		return decimal.NewFromInt(int64(p)), nil
	case float64:
		return decimal.NewFromFloat(p), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported price %v", v)
	}
}
