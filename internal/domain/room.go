package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type RoomType struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Area        int             `json:"area"`
	MaxGuests   int             `json:"max_guests"`
	BasePrice   decimal.Decimal `json:"base_price"` // per night, 2 fractional digits
}

type Amenity struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Room is managed by administrators; the booking flow only reads it.
// Type is nil when the room has no room type assigned.
type Room struct {
	ID          int64     `json:"id"`
	RoomNumber  string    `json:"room_number"`
	Floor       int       `json:"floor"`
	IsAvailable bool      `json:"is_available"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *RoomType `json:"room_type,omitempty"`
	Amenities   []Amenity `json:"amenities"`
}

// RoomTypeCatalogue lists room types with the facets a room search offers.
type RoomTypeCatalogue struct {
	Items     []RoomType      `json:"items"`
	Names     []string        `json:"names"`
	MinPrice  decimal.Decimal `json:"min_price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
	MaxGuests int             `json:"max_guests"`
}

// NewRoomTypeCatalogue computes the facets over types. An empty list has
// zero facets.
func NewRoomTypeCatalogue(types []RoomType) RoomTypeCatalogue {
	c := RoomTypeCatalogue{Items: append([]RoomType{}, types...), Names: make([]string, 0, len(types))}
	for i, t := range types {
		c.Names = append(c.Names, t.Name)
		if i == 0 || t.BasePrice.LessThan(c.MinPrice) {
			c.MinPrice = t.BasePrice
		}
		if i == 0 || t.BasePrice.GreaterThan(c.MaxPrice) {
			c.MaxPrice = t.BasePrice
		}
		if t.MaxGuests > c.MaxGuests {
			c.MaxGuests = t.MaxGuests
		}
	}
	return c
}

// Catalogue is a batch of room types and rooms loaded by operator tooling.
type Catalogue struct {
	RoomTypes []RoomType `json:"room_types"`
	Rooms     []Room     `json:"rooms"`
}

// Validate checks every entry before anything is written.
func (c Catalogue) Validate() error {
	for _, t := range c.RoomTypes {
		switch {
		case t.ID <= 0:
			return fmt.Errorf("%w: room type id must be positive", ErrInvalidCatalogue)
		case strings.TrimSpace(t.Name) == "":
			return fmt.Errorf("%w: room type %d has no name", ErrInvalidCatalogue, t.ID)
		case t.BasePrice.IsNegative():
			return fmt.Errorf("%w: room type %d has a negative price", ErrInvalidCatalogue, t.ID)
		case t.MaxGuests < 1:
			return fmt.Errorf("%w: room type %d sleeps nobody", ErrInvalidCatalogue, t.ID)
		}
	}
	for _, r := range c.Rooms {
		switch {
		case r.ID <= 0:
			return fmt.Errorf("%w: room id must be positive", ErrInvalidCatalogue)
		case strings.TrimSpace(r.RoomNumber) == "":
			return fmt.Errorf("%w: room %d has no number", ErrInvalidCatalogue, r.ID)
		}
	}
	return nil
}
