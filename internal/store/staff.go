package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopdesk/internal/models"
)

// CreateStaff inserts a staff account
func (s *Store) CreateStaff(ctx context.Context, st *models.Staff) error {
	query := `
		INSERT INTO staff (name, phone, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, st, query,
		st.Name, st.Phone, st.PasswordHash, st.Role, st.Active)
}

// GetStaffByID retrieves a staff account by ID
func (s *Store) GetStaffByID(ctx context.Context, id int64) (*models.Staff, error) {
	var st models.Staff
	err := s.db.GetContext(ctx, &st, "SELECT * FROM staff WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("staff not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetStaffByPhone retrieves a staff account by phone (the login key)
func (s *Store) GetStaffByPhone(ctx context.Context, phone string) (*models.Staff, error) {
	var st models.Staff
	err := s.db.GetContext(ctx, &st, "SELECT * FROM staff WHERE phone = $1", phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStaff retrieves all staff accounts
func (s *Store) ListStaff(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	err := s.db.SelectContext(ctx, &staff, "SELECT * FROM staff ORDER BY id")
	return staff, err
}

// UpdateStaff updates name, phone and role
func (s *Store) UpdateStaff(ctx context.Context, st *models.Staff) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE staff SET name = $1, phone = $2, role = $3 WHERE id = $4",
		st.Name, st.Phone, st.Role, st.ID)
	return err
}

// SetStaffActive activates or deactivates a staff account
func (s *Store) SetStaffActive(ctx context.Context, staffID int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE staff SET active = $1 WHERE id = $2", active, staffID)
	return err
}

// CreateAttendance records a check-in for the day. The unique (staff_id, day)
// constraint rejects a second check-in.
func (s *Store) CreateAttendance(ctx context.Context, a *models.Attendance) error {
	query := `
		INSERT INTO attendance (staff_id, day, check_in, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.db.GetContext(ctx, &a.ID, query, a.StaffID, a.Day, a.CheckIn, a.Status)
}

// GetAttendance retrieves a staff member's record for a day
func (s *Store) GetAttendance(ctx context.Context, staffID int64, day time.Time) (*models.Attendance, error) {
	var a models.Attendance
	err := s.db.GetContext(ctx, &a,
		"SELECT * FROM attendance WHERE staff_id = $1 AND day = $2", staffID, day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetCheckOut records the check-out time on an attendance row
func (s *Store) SetCheckOut(ctx context.Context, attendanceID int64, checkOut time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE attendance SET check_out = $1 WHERE id = $2", checkOut, attendanceID)
	return err
}

// ListAttendanceByDay retrieves all attendance rows for a day
func (s *Store) ListAttendanceByDay(ctx context.Context, day time.Time) ([]models.Attendance, error) {
	var rows []models.Attendance
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM attendance WHERE day = $1 ORDER BY staff_id", day)
	return rows, err
}

// ListAttendanceByStaff retrieves one staff member's rows in a date range
func (s *Store) ListAttendanceByStaff(ctx context.Context, staffID int64, from, to time.Time) ([]models.Attendance, error) {
	var rows []models.Attendance
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM attendance WHERE staff_id = $1 AND day >= $2 AND day < $3 ORDER BY day",
		staffID, from, to)
	return rows, err
}
