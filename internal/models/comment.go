package models

import "time"

// Comment - комментарий к сообщению. Не редактируется и не удаляется.
type Comment struct {
	ID        int64     `json:"id"`
	AlertID   int64     `json:"alert_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID реализует Record
func (c *Comment) RecordID() int64 { return c.ID }
