package model

import "time"

type User struct {
	ID        int64     `json:"id"`
	TgID      int64     `json:"tg_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
