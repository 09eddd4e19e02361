// Package models defines the StationSync entities shared by every backend.
// Timestamps are ISO-8601 strings and record dates are "YYYY-MM-DD" so the
// relational rows and the JSON interchange files round-trip unchanged.
package models

// Station is a battery-swap station registered by an operator.
type Station struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Contact      string `db:"contact" json:"contact"`
	Location     string `db:"location" json:"location"`
	Type         string `db:"type" json:"type"`
	BatteryCount int    `db:"battery_count" json:"batteryCount"`
	Status       string `db:"status" json:"status"`
	IoTStatus    string `db:"iot_status" json:"iotStatus"`
	CreatedAt    string `db:"created_at" json:"createdAt"`
}

// Record is one station's daily usage entry. At most one record exists per
// (StationID, Date) pair; writes for an existing pair update in place.
type Record struct {
	ID         string  `db:"id" json:"id"`
	StationID  string  `db:"station_id" json:"stationId"`
	Date       string  `db:"date" json:"date"`
	StartOfDay int     `db:"start_of_day" json:"startOfDay"`
	GivenOut   int     `db:"given_out" json:"givenOut"`
	Remaining  int     `db:"remaining" json:"remaining"`
	NeedRepair int     `db:"need_repair" json:"needRepair"`
	Damaged    int     `db:"damaged" json:"damaged"`
	Earnings   float64 `db:"earnings" json:"earnings"`
	Notes      string  `db:"notes" json:"notes"`
	CreatedAt  string  `db:"created_at" json:"createdAt"`
	UpdatedAt  string  `db:"updated_at" json:"updatedAt,omitempty"`
}

// User is a dashboard account. Username is the natural key; users are never
// hard-deleted.
type User struct {
	ID               int64  `db:"id" json:"id"`
	Username         string `db:"username" json:"username"`
	PasswordHash     string `db:"password" json:"password"`
	ResetToken       string `db:"reset_token" json:"resetToken,omitempty"`
	ResetTokenExpiry string `db:"reset_expiry" json:"resetTokenExpiry,omitempty"`
	CreatedAt        string `db:"created_at" json:"createdAt"`
}
