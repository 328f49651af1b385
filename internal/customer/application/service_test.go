package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/infrastructure/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

type orderRefs map[string]bool

func (o orderRefs) HasCustomer(_ context.Context, id string) (bool, error) { return o[id], nil }

func TestCustomerService(t *testing.T) {
	ctx := context.Background()
	refs := orderRefs{}
	svc := application.NewService(memory.NewStore(), refs)

	ana, err := svc.Create(ctx, application.ProfileInput{Name: "Ana Ruiz", Email: "Ana@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", ana.Email)

	t.Run("exists", func(t *testing.T) {
		ok, err := svc.Exists(ctx, ana.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, _ = svc.Exists(ctx, "ghost")
		assert.False(t, ok)
	})

	t.Run("duplicate email is case insensitive", func(t *testing.T) {
		_, err := svc.Create(ctx, application.ProfileInput{Name: "Other", Email: "ANA@example.com"})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("invalid address fields are listed", func(t *testing.T) {
		_, err := svc.Create(ctx, application.ProfileInput{
			Name:    "Luis",
			Email:   "luis@example.com",
			Address: &domain.Address{Street: "Calle 1"},
		})
		require.Error(t, err)
		fields := map[string]bool{}
		for _, f := range apperr.FieldsOf(err) {
			fields[f.Field] = true
		}
		assert.True(t, fields["address.city"])
		assert.True(t, fields["address.country"])
	})

	t.Run("update", func(t *testing.T) {
		got, err := svc.Update(ctx, ana.ID, application.ProfileInput{Name: "Ana María Ruiz", Email: "ana@example.com", Phone: "555-0101"})
		require.NoError(t, err)
		assert.Equal(t, "555-0101", got.Phone)
	})

	t.Run("delete refused with orders", func(t *testing.T) {
		refs[ana.ID] = true
		assert.ErrorIs(t, svc.Delete(ctx, ana.ID), domain.ErrCustomerHasOrder)
		delete(refs, ana.ID)
		require.NoError(t, svc.Delete(ctx, ana.ID))
		_, err := svc.Get(ctx, ana.ID)
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})
}
