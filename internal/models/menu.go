package models

import "time"

// MenuType is header or footer.
type MenuType string

const (
	MenuHeader MenuType = "header"
	MenuFooter MenuType = "footer"
)

func (t MenuType) Valid() bool {
	return t == MenuHeader || t == MenuFooter
}

// Menu stores the raw menu dialect for one website and position.
type Menu struct {
	ID        int64     `db:"id"         json:"id"`
	WebsiteID int64     `db:"website_id" json:"website_id"`
	Type      MenuType  `db:"type"       json:"type"`
	Content   string    `db:"content"    json:"content"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type MenuUpdateRequest struct {
	Content string `json:"content"`
}
