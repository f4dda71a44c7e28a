package service

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/models"
	"shopdesk/internal/redisclient"
	"shopdesk/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong phone/password pair or a
// deactivated account. One error for both so the response does not reveal
// which part failed.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

// StaffStore is the persistence surface the staff service uses. Satisfied
// by *store.Store.
type StaffStore interface {
	CreateStaff(ctx context.Context, st *models.Staff) error
	GetStaffByID(ctx context.Context, id int64) (*models.Staff, error)
	GetStaffByPhone(ctx context.Context, phone string) (*models.Staff, error)
	ListStaff(ctx context.Context) ([]models.Staff, error)
	UpdateStaff(ctx context.Context, st *models.Staff) error
	SetStaffActive(ctx context.Context, staffID int64, active bool) error
	CreateAttendance(ctx context.Context, a *models.Attendance) error
	GetAttendance(ctx context.Context, staffID int64, day time.Time) (*models.Attendance, error)
	SetCheckOut(ctx context.Context, attendanceID int64, checkOut time.Time) error
	ListAttendanceByDay(ctx context.Context, day time.Time) ([]models.Attendance, error)
	ListAttendanceByStaff(ctx context.Context, staffID int64, from, to time.Time) ([]models.Attendance, error)
}

// SessionStore holds bearer-token sessions. Satisfied by
// *redisclient.Client.
type SessionStore interface {
	StoreSession(ctx context.Context, token string, sess *redisclient.Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*redisclient.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// StaffService handles accounts, login sessions and attendance
type StaffService struct {
	store      StaffStore
	sessions   SessionStore
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewStaffService creates a new staff service
func NewStaffService(store StaffStore, sessions SessionStore, sessionTTL time.Duration) *StaffService {
	return &StaffService{
		store:      store,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     util.NamedLogger("staff"),
		now:        time.Now,
	}
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a bearer token backed by a Redis
// session with TTL. Returns the token and the staff profile.
func (s *StaffService) Login(ctx context.Context, req *LoginRequest) (string, *models.Staff, error) {
	staff, err := s.store.GetStaffByPhone(ctx, req.Phone)
	if err != nil {
		util.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	if staff == nil || !staff.Active {
		util.LoginsTotal.WithLabelValues("rejected").Inc()
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		util.LoginsTotal.WithLabelValues("rejected").Inc()
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.New().String()
	sess := &redisclient.Session{
		StaffID: staff.ID,
		Name:    staff.Name,
		Role:    staff.Role,
	}
	if err := s.sessions.StoreSession(ctx, token, sess, s.sessionTTL); err != nil {
		util.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	util.LoginsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Staff logged in",
		zap.Int64("staff_id", staff.ID),
		zap.String("role", staff.Role))
	return token, staff, nil
}

// Logout revokes a bearer token
func (s *StaffService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// ResolveSession maps a bearer token to its session, nil when unknown
func (s *StaffService) ResolveSession(ctx context.Context, token string) (*redisclient.Session, error) {
	return s.sessions.GetSession(ctx, token)
}

// CreateStaffRequest carries a new staff account
type CreateStaffRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin staff executive"`
}

// CreateStaff registers a staff account with a bcrypt password hash
func (s *StaffService) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*models.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	staff := &models.Staff{
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}

	if err := s.store.CreateStaff(ctx, staff); err != nil {
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}

	s.logger.Info("Staff created",
		zap.Int64("staff_id", staff.ID),
		zap.String("role", staff.Role))
	return staff, nil
}

// UpdateStaffRequest carries edits to a staff account
type UpdateStaffRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Role  string `json:"role" binding:"required,oneof=admin staff executive"`
}

// UpdateStaff updates name, phone and role
func (s *StaffService) UpdateStaff(ctx context.Context, id int64, req *UpdateStaffRequest) (*models.Staff, error) {
	staff, err := s.store.GetStaffByID(ctx, id)
	if err != nil {
		return nil, err
	}

	staff.Name = req.Name
	staff.Phone = req.Phone
	staff.Role = req.Role

	if err := s.store.UpdateStaff(ctx, staff); err != nil {
		return nil, fmt.Errorf("failed to update staff: %w", err)
	}
	return staff, nil
}

// SetActive activates or deactivates an account. Deactivation does not
// revoke live sessions; those expire with their TTL.
func (s *StaffService) SetActive(ctx context.Context, staffID int64, active bool) error {
	return s.store.SetStaffActive(ctx, staffID, active)
}

// ListStaff retrieves all staff accounts
func (s *StaffService) ListStaff(ctx context.Context) ([]models.Staff, error) {
	return s.store.ListStaff(ctx)
}

// GetStaff retrieves a staff account
func (s *StaffService) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	return s.store.GetStaffByID(ctx, id)
}

// CheckIn records today's attendance for the staff member. A second
// check-in on the same day is rejected.
func (s *StaffService) CheckIn(ctx context.Context, staffID int64) (*models.Attendance, error) {
	now := s.now()
	day := truncateToDay(now)

	existing, err := s.store.GetAttendance(ctx, staffID, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already checked in today")
	}

	a := &models.Attendance{
		StaffID: staffID,
		Day:     day,
		CheckIn: now,
		Status:  models.AttendancePresent,
	}
	if err := s.store.CreateAttendance(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	return a, nil
}

// CheckOut stamps the check-out time on today's attendance row
func (s *StaffService) CheckOut(ctx context.Context, staffID int64) (*models.Attendance, error) {
	now := s.now()
	day := truncateToDay(now)

	a, err := s.store.GetAttendance(ctx, staffID, day)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("no check-in recorded today")
	}
	if a.CheckOut != nil {
		return nil, fmt.Errorf("already checked out today")
	}

	if err := s.store.SetCheckOut(ctx, a.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record check-out: %w", err)
	}
	a.CheckOut = &now
	return a, nil
}

// AttendanceForDay lists all attendance rows for one day
func (s *StaffService) AttendanceForDay(ctx context.Context, day time.Time) ([]models.Attendance, error) {
	return s.store.ListAttendanceByDay(ctx, truncateToDay(day))
}

// AttendanceForStaff lists one staff member's rows in [from, to)
func (s *StaffService) AttendanceForStaff(ctx context.Context, staffID int64, from, to time.Time) ([]models.Attendance, error) {
	return s.store.ListAttendanceByStaff(ctx, staffID, truncateToDay(from), truncateToDay(to))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
