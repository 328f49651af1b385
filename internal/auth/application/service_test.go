package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/infrastructure/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

func newService() (*Service, *Tokens) {
	tokens := NewTokens("test-secret", 24*time.Hour)
	return NewService(memory.NewStore(), tokens, bcrypt.MinCost), tokens
}

var valid = RegisterInput{Name: "Ana Ruiz", Email: "Ana@Pharma.test", Password: "S3cure!pass"}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newService()

	u, err := svc.Register(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "ana@pharma.test", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, valid.Password, u.PasswordHash)

	_, err = svc.Register(ctx, valid)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	sess, err := svc.Login(ctx, LoginInput{Email: "ANA@pharma.test", Password: valid.Password})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpiresAt, time.Minute)

	id, err := tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "ana@pharma.test", id.Email)
	assert.Equal(t, "user", id.Role)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	_, err := svc.Register(ctx, valid)
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: valid.Email, Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@pharma.test", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "nope", Password: "short"})
	require.Error(t, err)

	fields := map[string]bool{}
	for _, f := range apperr.FieldsOf(err) {
		fields[f.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "a@b.co", Password: "alllowercase1!"})
	require.Error(t, err)
	assert.Equal(t, "password", apperr.FieldsOf(err)[0].Field)
}

func TestSetupAdminOnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	admin, err := svc.SetupAdmin(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = svc.SetupAdmin(ctx, RegisterInput{Name: "Second", Email: "second@pharma.test", Password: valid.Password})
	assert.ErrorIs(t, err, domain.ErrAdminExists)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	u := domain.NewUser("u-1", "Ana", "a@b.co", "", domain.RoleUser)

	signed, _, err := tokens.Issue(u)
	require.NoError(t, err)

	_, err = NewTokens("other-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
