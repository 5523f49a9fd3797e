package models

// Settings is the process-wide configuration record. Exactly one logical
// instance exists; the repository stores it as a single fixed row and import
// overwrites it in place rather than delete/recreate.
type Settings struct {
	DefaultDiameterMM float64 `db:"default_diameter_mm" json:"default_diameter_mm"`
	LowStockPercent   float64 `db:"low_stock_percent" json:"low_stock_percent"`
	CurrencySymbol    string  `db:"currency_symbol" json:"currency_symbol"`
	Language          string  `db:"language" json:"language"`
	UpdatedAt         int64   `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Settings.
func (Settings) TableName() string {
	return "settings"
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		DefaultDiameterMM: 1.75,
		LowStockPercent:   10,
		CurrencySymbol:    "$",
		Language:          "en",
	}
}
