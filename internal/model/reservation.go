package model

import "time"

// ReservationKind — вид бронирования. Новый вид добавляется сюда и во все
// switch по Kind; незакрытый switch ловится на ревью, а не в проде.
type ReservationKind string

const (
	ReservationSingle ReservationKind = "single"
	ReservationWeekly ReservationKind = "weekly"
)

// Reservation — tagged union над двумя видами бронирований. Ровно одно из
// полей Single/Weekly не nil, в зависимости от Kind.
type Reservation struct {
	Kind   ReservationKind
	Single *Booking
	Weekly *WeeklySubscription
}

func SingleReservation(b *Booking) Reservation {
	return Reservation{Kind: ReservationSingle, Single: b}
}

func WeeklyReservation(w *WeeklySubscription) Reservation {
	return Reservation{Kind: ReservationWeekly, Weekly: w}
}

// OwnerID возвращает владельца бронирования.
func (r Reservation) OwnerID() int64 {
	switch r.Kind {
	case ReservationSingle:
		return r.Single.UserID
	case ReservationWeekly:
		return r.Weekly.UserID
	}
	return 0
}

// CreatedAt нужен для сортировки "моих записей" (новые сверху).
func (r Reservation) CreatedAt() time.Time {
	switch r.Kind {
	case ReservationSingle:
		return r.Single.CreatedAt
	case ReservationWeekly:
		return r.Weekly.CreatedAt
	}
	return time.Time{}
}
