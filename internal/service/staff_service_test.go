package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopdesk/internal/models"
	"shopdesk/internal/redisclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeStaffStore struct {
	staff      map[int64]*models.Staff
	attendance map[string]*models.Attendance
	nextID     int64
}

func newFakeStaffStore() *fakeStaffStore {
	return &fakeStaffStore{
		staff:      map[int64]*models.Staff{},
		attendance: map[string]*models.Attendance{},
	}
}

func attKey(staffID int64, day time.Time) string {
	return fmt.Sprintf("%d-%s", staffID, day.Format("2006-01-02"))
}

func (f *fakeStaffStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	f.nextID++
	st.ID = f.nextID
	cp := *st
	f.staff[st.ID] = &cp
	return nil
}

func (f *fakeStaffStore) GetStaffByID(ctx context.Context, id int64) (*models.Staff, error) {
	st, ok := f.staff[id]
	if !ok {
		return nil, fmt.Errorf("staff not found: %d", id)
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStaffStore) GetStaffByPhone(ctx context.Context, phone string) (*models.Staff, error) {
	for _, st := range f.staff {
		if st.Phone == phone {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStaffStore) ListStaff(ctx context.Context) ([]models.Staff, error) {
	var out []models.Staff
	for _, st := range f.staff {
		out = append(out, *st)
	}
	return out, nil
}

func (f *fakeStaffStore) UpdateStaff(ctx context.Context, st *models.Staff) error {
	existing, ok := f.staff[st.ID]
	if !ok {
		return fmt.Errorf("staff not found: %d", st.ID)
	}
	existing.Name = st.Name
	existing.Phone = st.Phone
	existing.Role = st.Role
	return nil
}

func (f *fakeStaffStore) SetStaffActive(ctx context.Context, staffID int64, active bool) error {
	st, ok := f.staff[staffID]
	if !ok {
		return fmt.Errorf("staff not found: %d", staffID)
	}
	st.Active = active
	return nil
}

func (f *fakeStaffStore) CreateAttendance(ctx context.Context, a *models.Attendance) error {
	key := attKey(a.StaffID, a.Day)
	if _, exists := f.attendance[key]; exists {
		return fmt.Errorf("duplicate attendance")
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.attendance[key] = &cp
	return nil
}

func (f *fakeStaffStore) GetAttendance(ctx context.Context, staffID int64, day time.Time) (*models.Attendance, error) {
	a, ok := f.attendance[attKey(staffID, day)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStaffStore) SetCheckOut(ctx context.Context, attendanceID int64, checkOut time.Time) error {
	for _, a := range f.attendance {
		if a.ID == attendanceID {
			ts := checkOut
			a.CheckOut = &ts
			return nil
		}
	}
	return fmt.Errorf("attendance not found: %d", attendanceID)
}

func (f *fakeStaffStore) ListAttendanceByDay(ctx context.Context, day time.Time) ([]models.Attendance, error) {
	var out []models.Attendance
	for _, a := range f.attendance {
		if a.Day.Equal(day) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStaffStore) ListAttendanceByStaff(ctx context.Context, staffID int64, from, to time.Time) ([]models.Attendance, error) {
	var out []models.Attendance
	for _, a := range f.attendance {
		if a.StaffID == staffID && !a.Day.Before(from) && a.Day.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeSessionStore struct {
	sessions map[string]*redisclient.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*redisclient.Session{}}
}

func (f *fakeSessionStore) StoreSession(ctx context.Context, token string, sess *redisclient.Session, ttl time.Duration) error {
	f.sessions[token] = sess
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, token string) (*redisclient.Session, error) {
	return f.sessions[token], nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func newTestStaffService(t *testing.T) (*StaffService, *fakeStaffStore, *fakeSessionStore) {
	t.Helper()
	st := newFakeStaffStore()
	sessions := newFakeSessionStore()
	return NewStaffService(st, sessions, time.Hour), st, sessions
}

func seedStaff(t *testing.T, st *fakeStaffStore, phone, password, role string) *models.Staff {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	staff := &models.Staff{
		Name:         "Test User",
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, st.CreateStaff(context.Background(), staff))
	return staff
}

func TestLoginIssuesSession(t *testing.T) {
	svc, st, sessions := newTestStaffService(t)
	seedStaff(t, st, "555-0100", "secret1", models.RoleStaff)

	token, staff, err := svc.Login(context.Background(), &LoginRequest{
		Phone:    "555-0100",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleStaff, staff.Role)

	sess, err := svc.ResolveSession(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, staff.ID, sess.StaffID)
	assert.Equal(t, models.RoleStaff, sess.Role)

	require.NoError(t, svc.Logout(context.Background(), token))
	sess, err = svc.ResolveSession(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, sessions.sessions)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, st, _ := newTestStaffService(t)
	staff := seedStaff(t, st, "555-0100", "secret1", models.RoleStaff)

	_, _, err := svc.Login(context.Background(), &LoginRequest{
		Phone:    "555-0100",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), &LoginRequest{
		Phone:    "555-9999",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Deactivated accounts cannot log in.
	require.NoError(t, svc.SetActive(context.Background(), staff.ID, false))
	_, _, err = svc.Login(context.Background(), &LoginRequest{
		Phone:    "555-0100",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateStaffHashesPassword(t *testing.T) {
	svc, _, _ := newTestStaffService(t)

	staff, err := svc.CreateStaff(context.Background(), &CreateStaffRequest{
		Name:     "New Hire",
		Phone:    "555-0200",
		Password: "hunter22",
		Role:     models.RoleStaff,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", staff.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(staff.PasswordHash), []byte("hunter22")))
	assert.True(t, staff.Active)
}

func TestCheckInCheckOut(t *testing.T) {
	svc, st, _ := newTestStaffService(t)
	staff := seedStaff(t, st, "555-0100", "secret1", models.RoleStaff)

	morning := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return morning }

	record, err := svc.CheckIn(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
	assert.Equal(t, morning, record.CheckIn)
	assert.Nil(t, record.CheckOut)

	// Second check-in the same day is rejected.
	_, err = svc.CheckIn(context.Background(), staff.ID)
	assert.Error(t, err)

	evening := morning.Add(9 * time.Hour)
	svc.now = func() time.Time { return evening }

	record, err = svc.CheckOut(context.Background(), staff.ID)
	require.NoError(t, err)
	require.NotNil(t, record.CheckOut)
	assert.Equal(t, evening, *record.CheckOut)

	// Second check-out is rejected.
	_, err = svc.CheckOut(context.Background(), staff.ID)
	assert.Error(t, err)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	svc, st, _ := newTestStaffService(t)
	staff := seedStaff(t, st, "555-0100", "secret1", models.RoleStaff)

	_, err := svc.CheckOut(context.Background(), staff.ID)
	assert.Error(t, err)
}
