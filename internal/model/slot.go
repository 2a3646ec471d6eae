package model

import "time"

// Slot — конкретное бронируемое время для разового занятия.
// Длительность не хранится: занятие всегда фиксированной длины.
// start_at уникален, слот держит не больше одного бронирования.
type Slot struct {
	ID        int64     `json:"id"`
	StartAt   time.Time `json:"start_at"`
	CreatedAt time.Time `json:"created_at"`
}
