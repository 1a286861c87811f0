package domain

import "time"

const DateLayout = "2006-01-02"

// Rental is active while ActualReturnDate is nil.
type Rental struct {
	ID               int64      `json:"id"`
	RentalDate       time.Time  `json:"rental_date"`
	ReturnDate       time.Time  `json:"return_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`
	UserID           int64      `json:"user_id"`
	CarID            int64      `json:"car_id"`
	IsDeleted        bool       `json:"-"`
}

func (r *Rental) IsActive() bool {
	return r.ActualReturnDate == nil
}

// IsOverdue reports whether the rental is active and its expected return
// date is today or earlier.
func (r *Rental) IsOverdue(today time.Time) bool {
	return r.IsActive() && !TruncateDate(r.ReturnDate).After(TruncateDate(today))
}

func (r *Rental) DaysOverdue(today time.Time) int {
	if !r.IsOverdue(today) {
		return 0
	}
	return DaysBetween(r.ReturnDate, today)
}

// TruncateDate drops the clock part, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(TruncateDate(b).Sub(TruncateDate(a)).Hours() / 24)
}

// OverdueNotice is handed to the notifier for every overdue rental found
// by the periodic sweep.
type OverdueNotice struct {
	RentalID    int64     `json:"rental_id"`
	UserID      int64     `json:"user_id"`
	CarID       int64     `json:"car_id"`
	ReturnDate  time.Time `json:"return_date"`
	DaysOverdue int       `json:"days_overdue"`
}
