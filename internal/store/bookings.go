package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Booking mirrors a row of the bookings table.
type Booking struct {
	ID             pgtype.UUID
	VillaID        pgtype.UUID
	GuestID        pgtype.UUID
	GuestFirstName string
	GuestEmail     string
	CheckIn        pgtype.Date
	CheckOut       pgtype.Date
	Nights         int32
	Subtotal       int64
	CleaningFee    int64
	Tax            int64
	Discount       int64
	Total          int64
	Currency       string
	Status         string
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

const bookingColumns = `id, villa_id, guest_id, guest_first_name, guest_email, check_in, check_out,
	nights, subtotal, cleaning_fee, tax, discount, total, currency, status, created_at, updated_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.VillaID, &b.GuestID, &b.GuestFirstName, &b.GuestEmail,
		&b.CheckIn, &b.CheckOut, &b.Nights, &b.Subtotal, &b.CleaningFee, &b.Tax,
		&b.Discount, &b.Total, &b.Currency, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

// CreateBookingParams holds the committed price snapshot for one stay.
type CreateBookingParams struct {
	VillaID        pgtype.UUID
	GuestID        pgtype.UUID
	GuestFirstName string
	GuestEmail     string
	CheckIn        time.Time
	CheckOut       time.Time
	Nights         int32
	Subtotal       int64
	CleaningFee    int64
	Tax            int64
	Discount       int64
	Total          int64
	Currency       string
	Status         string
}

// CreateBooking inserts a booking carrying its committed price snapshot.
func (s *Store) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO bookings (villa_id, guest_id, guest_first_name, guest_email, check_in, check_out,
			nights, subtotal, cleaning_fee, tax, discount, total, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+bookingColumns,
		arg.VillaID, arg.GuestID, arg.GuestFirstName, arg.GuestEmail,
		pgtype.Date{Time: arg.CheckIn, Valid: true}, pgtype.Date{Time: arg.CheckOut, Valid: true},
		arg.Nights, arg.Subtotal, arg.CleaningFee, arg.Tax, arg.Discount, arg.Total,
		arg.Currency, arg.Status)
	return scanBooking(row)
}

// GetBooking loads a booking by id.
func (s *Store) GetBooking(ctx context.Context, id pgtype.UUID) (Booking, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// ListBookingsByGuest returns a guest's bookings, newest first.
func (s *Store) ListBookingsByGuest(ctx context.Context, guestID pgtype.UUID, limit, offset int32) ([]Booking, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE guest_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		guestID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// UpdateBookingStatus transitions a booking; the service validates the edge.
func (s *Store) UpdateBookingStatus(ctx context.Context, id pgtype.UUID, status string) (Booking, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1
		RETURNING `+bookingColumns, id, status)
	return scanBooking(row)
}

// CountOverlappingBookings counts live bookings whose half-open range
// intersects [checkIn, checkOut) for the villa.
func (s *Store) CountOverlappingBookings(ctx context.Context, villaID pgtype.UUID, checkIn, checkOut time.Time) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE villa_id = $1 AND status <> 'CANCELLED'
		  AND check_in < $3 AND check_out > $2`,
		villaID,
		pgtype.Date{Time: checkIn, Valid: true}, pgtype.Date{Time: checkOut, Valid: true}).Scan(&n)
	return n, err
}

// ListVillaBookedRanges returns live booked ranges for availability display.
func (s *Store) ListVillaBookedRanges(ctx context.Context, villaID pgtype.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE villa_id = $1 AND status <> 'CANCELLED'
		  AND check_in < $3 AND check_out > $2
		ORDER BY check_in`,
		villaID, pgtype.Date{Time: from, Valid: true}, pgtype.Date{Time: to, Valid: true})
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListConfirmedArrivals returns CONFIRMED bookings checking in inside the window.
func (s *Store) ListConfirmedArrivals(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'CONFIRMED' AND check_in >= $1 AND check_in < $2
		ORDER BY check_in`,
		pgtype.Date{Time: from, Valid: true}, pgtype.Date{Time: to, Valid: true})
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// RevenueByDayRow is one day of the revenue aggregate.
type RevenueByDayRow struct {
	Day      pgtype.Timestamptz
	Bookings int64
	Revenue  int64
	Nights   int64
}

// RevenueByDay aggregates non-cancelled booking revenue per creation day.
func (s *Store) RevenueByDay(ctx context.Context, from, to time.Time) ([]RevenueByDayRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       count(*) AS bookings,
		       coalesce(sum(total), 0) AS revenue,
		       coalesce(sum(nights), 0) AS nights
		FROM bookings
		WHERE status <> 'CANCELLED' AND created_at >= $1 AND created_at < $2
		GROUP BY 1 ORDER BY 1`,
		pgtype.Timestamptz{Time: from, Valid: true}, pgtype.Timestamptz{Time: to, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RevenueByDayRow
	for rows.Next() {
		var r RevenueByDayRow
		if err := rows.Scan(&r.Day, &r.Bookings, &r.Revenue, &r.Nights); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OccupancyRow is the booked-night aggregate for one villa.
type OccupancyRow struct {
	VillaID   pgtype.UUID
	VillaName string
	Nights    int64
	Bookings  int64
}

// OccupancyByVilla aggregates booked nights per villa for stays touching the window.
func (s *Store) OccupancyByVilla(ctx context.Context, from, to time.Time) ([]OccupancyRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT v.id, v.name,
		       coalesce(sum(b.nights), 0) AS nights,
		       count(b.id) AS bookings
		FROM villas v
		LEFT JOIN bookings b ON b.villa_id = v.id
		  AND b.status <> 'CANCELLED'
		  AND b.check_in < $2 AND b.check_out > $1
		GROUP BY v.id, v.name
		ORDER BY nights DESC`,
		pgtype.Date{Time: from, Valid: true}, pgtype.Date{Time: to, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OccupancyRow
	for rows.Next() {
		var r OccupancyRow
		if err := rows.Scan(&r.VillaID, &r.VillaName, &r.Nights, &r.Bookings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
