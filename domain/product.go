package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalogue entry. Price is in minor currency units (cents).
type Product struct {
	ID           uuid.UUID      `json:"id"`
	Slug         string         `json:"slug"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Price        int64          `json:"price"`
	Stock        int            `json:"stock"`
	Images       []string       `json:"images"`
	Options      map[string]any `json:"options"`
	Featured     bool           `json:"featured"`
	Customizable bool           `json:"customizable"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// InStock reports whether at least qty units are available.
func (p *Product) InStock(qty int) bool {
	return p.Stock >= qty
}

// PrimaryImage returns the first image URL or "".
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
