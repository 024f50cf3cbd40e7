package memory

import (
	"github.com/shopspring/decimal"

	"bookify/internal/domain"
)

// SeedDemo loads the same demo catalogue as migrations/002_seed.sql.
func SeedDemo(s *Store) {
	for _, rt := range []domain.RoomType{
		{ID: 1, Name: "Standard", Description: "Queen bed, garden view", Area: 22, MaxGuests: 2, BasePrice: decimal.RequireFromString("100.00")},
		{ID: 2, Name: "Deluxe", Description: "King bed, sea view", Area: 30, MaxGuests: 2, BasePrice: decimal.RequireFromString("149.50")},
		{ID: 3, Name: "Suite", Description: "Separate living room", Area: 55, MaxGuests: 4, BasePrice: decimal.RequireFromString("320.00")},
	} {
		s.PutRoomType(rt)
	}

	wifi := domain.Amenity{ID: 1, Name: "Wi-Fi", Description: "Free wireless internet"}
	minibar := domain.Amenity{ID: 2, Name: "Minibar"}
	bathtub := domain.Amenity{ID: 3, Name: "Bathtub"}
	corner := "Corner room"

	for _, r := range []domain.Room{
		{ID: 1, RoomNumber: "101", Floor: 1, Type: &domain.RoomType{ID: 1}, Amenities: []domain.Amenity{wifi}},
		{ID: 2, RoomNumber: "102", Floor: 1, Type: &domain.RoomType{ID: 1}, Amenities: []domain.Amenity{wifi}},
		{ID: 3, RoomNumber: "201", Floor: 2, Description: &corner, Type: &domain.RoomType{ID: 2}, Amenities: []domain.Amenity{wifi, minibar}},
		{ID: 4, RoomNumber: "301", Floor: 3, Type: &domain.RoomType{ID: 3}, Amenities: []domain.Amenity{wifi, minibar, bathtub}},
	} {
		r.IsAvailable = true
		s.PutRoom(r)
	}
}
