package models

// User represents a student in the system.
// It maps to the `users` table in SQLite.
type User struct {
	ID         int64  `db:"id" json:"id"`
	TelegramID int64  `db:"telegram_id" json:"telegram_id"`
	Name       string `db:"name" json:"name"`
	Campus     string `db:"campus" json:"campus"`
	Gender     string `db:"gender" json:"gender"`
}
