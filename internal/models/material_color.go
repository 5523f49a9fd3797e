package models

// MaterialColor binds a material name to a display color used for charts and
// legends. Material names are unique case-insensitively; once assigned, a
// color only changes through an explicit override.
type MaterialColor struct {
	ID        UUID   `db:"id" json:"id"`
	Material  string `db:"material" json:"material"`
	ColorHex  string `db:"color_hex" json:"color_hex"` // 6 hex digits, no '#'
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for MaterialColor.
func (MaterialColor) TableName() string {
	return "material_colors"
}
