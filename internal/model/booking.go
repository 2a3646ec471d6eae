package model

import "time"

// Booking — разовое бронирование, привязанное к слоту.
type Booking struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	SlotID         int64     `json:"slot_id"`
	StudentName    string    `json:"student_name"`
	StudentContact string    `json:"student_contact"`
	GcalEventID    *string   `json:"gcal_event_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Slot *Slot `json:"slot,omitempty"`
	User *User `json:"user,omitempty"`
}

// StartAt возвращает время занятия, если слот загружен.
func (b *Booking) StartAt() (time.Time, bool) {
	if b.Slot == nil {
		return time.Time{}, false
	}
	return b.Slot.StartAt, true
}
