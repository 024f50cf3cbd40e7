package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money renders an amount in JSON as a string with PriceScale fractional
// digits ("300.00", "0.00"). Decoding accepts any decimal form.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(m).StringFixed(PriceScale) + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// The JSON forms below replace each decimal field with its Money view.

func (t RoomType) MarshalJSON() ([]byte, error) {
	type plain RoomType
	return json.Marshal(struct {
		plain
		BasePrice Money `json:"base_price"`
	}{plain(t), Money(t.BasePrice)})
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	return json.Marshal(struct {
		plain
		Price Money `json:"price"`
	}{plain(b), Money(b.Price)})
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return json.Marshal(struct {
		plain
		Amount Money `json:"amount"`
	}{plain(p), Money(p.Amount)})
}

func (q Quote) MarshalJSON() ([]byte, error) {
	type plain Quote
	return json.Marshal(struct {
		plain
		NightlyRate Money `json:"nightly_rate"`
		Total       Money `json:"total"`
	}{plain(q), Money(q.NightlyRate), Money(q.Total)})
}

func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		TotalRevenue Money `json:"total_revenue"`
	}{plain(s), Money(s.TotalRevenue)})
}

func (c RoomTypeCatalogue) MarshalJSON() ([]byte, error) {
	type plain RoomTypeCatalogue
	return json.Marshal(struct {
		plain
		MinPrice Money `json:"min_price"`
		MaxPrice Money `json:"max_price"`
	}{plain(c), Money(c.MinPrice), Money(c.MaxPrice)})
}
