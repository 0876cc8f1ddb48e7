package accounts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryCirculation/internal/auth"
	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/internal/testutil"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

const adminCode = "ADMIN123"

func newService(t *testing.T) *Service {
	t.Helper()
	d := testutil.OpenTestDB(t)
	return NewService(repository.NewStore(d), adminCode, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func staffUser(email string) NewUser {
	return NewUser{Name: "Sam", Email: email, Password: "pw", Role: "staff", Campus: "Kamulu", Grade: "Grade 4"}
}

func TestRegister(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, staffUser("sam@school.test"), "")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	require.NotNil(t, u.Grade)
	assert.Equal(t, "Grade 4", *u.Grade)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "pw"))

	_, err = s.Register(ctx, staffUser("sam@school.test"), "")
	assert.True(t, liberr.Is(err, liberr.KindConflict), "got %v", err)

	adm := NewUser{Name: "Ann", Email: "ann@school.test", Password: "pw", Role: "admin", Campus: "Diani"}
	_, err = s.Register(ctx, adm, "wrong")
	assert.True(t, liberr.Is(err, liberr.KindForbidden), "got %v", err)

	u, err = s.Register(ctx, adm, adminCode)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Nil(t, u.Grade)
}

func TestRegister_Validation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	bad := []NewUser{
		{Email: "a@b.test", Password: "pw", Role: "staff", Campus: "Kamulu"},
		{Name: "A", Email: "not-an-email", Password: "pw", Role: "staff", Campus: "Kamulu"},
		{Name: "A", Email: "a@b.test", Role: "staff", Campus: "Kamulu"},
		{Name: "A", Email: "a@b.test", Password: "pw", Role: "root", Campus: "Kamulu"},
		{Name: "A", Email: "a@b.test", Password: "pw", Role: "staff", Campus: "Mars"},
	}
	for _, n := range bad {
		_, err := s.Register(ctx, n, "")
		assert.True(t, liberr.Is(err, liberr.KindInvalidInput), "%+v: got %v", n, err)
	}
}

func TestLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, staffUser("sam@school.test"), "")
	require.NoError(t, err)

	u, err := s.Login(ctx, "sam@school.test", "pw", "Kamulu")
	require.NoError(t, err)
	assert.Equal(t, "Sam", u.Name)

	_, err = s.Login(ctx, "ghost@school.test", "pw", "Kamulu")
	assert.True(t, liberr.Is(err, liberr.KindNotFound), "got %v", err)

	_, err = s.Login(ctx, "sam@school.test", "pw", "Diani")
	assert.True(t, liberr.Is(err, liberr.KindForbidden), "got %v", err)

	_, err = s.Login(ctx, "sam@school.test", "nope", "Kamulu")
	assert.True(t, liberr.Is(err, liberr.KindUnauthenticated), "got %v", err)
}

func TestAdminUserManagement(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	admin, err := s.Bootstrap(ctx, NewUser{Name: "Ann", Email: "ann@school.test", Password: "pw", Role: "admin", Campus: "Diani"})
	require.NoError(t, err)
	caller := policy.Caller{ID: admin.ID, Role: models.RoleAdmin}
	staff := policy.Caller{ID: 999, Role: models.RoleStaff}

	_, err = s.CreateUser(ctx, caller, staffUser("sam@school.test"))
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, staff, staffUser("eve@school.test"))
	assert.True(t, liberr.Is(err, liberr.KindForbidden), "got %v", err)

	users, err := s.ListUsers(ctx, caller, "")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = s.ListUsers(ctx, caller, "sam")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "sam@school.test", users[0].Email)

	_, err = s.ListUsers(ctx, staff, "")
	assert.True(t, liberr.Is(err, liberr.KindForbidden), "got %v", err)

	me, err := s.Me(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "Ann", me.Name)
	_, err = s.Me(ctx, staff)
	assert.True(t, liberr.Is(err, liberr.KindNotFound), "got %v", err)
}

func TestResetPassword(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, staffUser("sam@school.test"), "")
	require.NoError(t, err)

	require.NoError(t, s.ResetPassword(ctx, "sam@school.test", "fresh"))
	_, err = s.Login(ctx, "sam@school.test", "fresh", "Kamulu")
	require.NoError(t, err)

	err = s.ResetPassword(ctx, "ghost@school.test", "x")
	assert.True(t, liberr.Is(err, liberr.KindNotFound), "got %v", err)
	err = s.ResetPassword(ctx, "sam@school.test", "")
	assert.True(t, liberr.Is(err, liberr.KindInvalidInput), "got %v", err)
}

func TestListUsers_ReturnsEveryPage(t *testing.T) {
	d := testutil.OpenTestDB(t)
	s := NewService(repository.NewStore(d), adminCode, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	admin := testutil.SeedUser(t, d, "Ann", "ann@school.test", "admin", "Diani", "")

	const staffCount = 520
	tx, err := d.Begin()
	require.NoError(t, err)
	for i := 0; i < staffCount; i++ {
		_, err := tx.Exec(`INSERT INTO users (name, email, password_hash, role, campus, grade) VALUES (?,?,?,?,?,?)`,
			fmt.Sprintf("Student %d", i), fmt.Sprintf("student%03d@school.test", i), "x", "staff", "Diani", "Grade 5")
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	caller := policy.Caller{ID: admin, Role: models.RoleAdmin}
	users, err := s.ListUsers(ctx, caller, "")
	require.NoError(t, err)
	require.Len(t, users, staffCount+1)
	for i := 1; i < len(users); i++ {
		require.Less(t, users[i-1].ID, users[i].ID, "users must be ordered by id without repeats")
	}

	users, err = s.ListUsers(ctx, caller, "student")
	require.NoError(t, err)
	assert.Len(t, users, staffCount)
}

func TestResetPassword_DoesNotLogEmail(t *testing.T) {
	var logs bytes.Buffer
	d := testutil.OpenTestDB(t)
	s := NewService(repository.NewStore(d), adminCode, slog.New(slog.NewJSONHandler(&logs, nil)))
	ctx := context.Background()
	testutil.SeedUser(t, d, "Sam", "sam@school.test", "staff", "Kamulu", "")

	require.NoError(t, s.ResetPassword(ctx, "sam@school.test", "fresh"))
	assert.Contains(t, logs.String(), "password reset")
	assert.NotContains(t, logs.String(), "sam@school.test")
}
