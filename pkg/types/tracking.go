package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Tracking holds carrier details once an order leaves the warehouse.
type Tracking struct {
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	URL            string     `json:"url,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// Value serializes tracking info to JSON text.
func (t *Tracking) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes a JSON column into the tracking struct.
func (t *Tracking) Scan(value any) error {
	if value == nil {
		*t = Tracking{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, t)
}
