package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressUsecase_FirstAddressBecomesDefault(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	uc := NewAddressUsecase(env.store, env.store.Repos().Addresses, env.clock)
	req := AddressCreateRequest{Name: "Hanako", Phone: "080", City: "Osaka", District: "Kita", Ward: "Umeda", Line: "2-2"}

	first, err := uc.Create(context.Background(), otherCustomer.UserID, req)
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := uc.Create(context.Background(), otherCustomer.UserID, req)
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	require.NoError(t, uc.SetDefault(context.Background(), otherCustomer.UserID, second.ID))

	list, err := uc.List(context.Background(), otherCustomer.UserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAddressUsecase_Errors(t *testing.T) {
	env := newTestEnv(t, OrderSettings{})
	uc := NewAddressUsecase(env.store, env.store.Repos().Addresses, env.clock)

	_, err := uc.Create(context.Background(), otherCustomer.UserID, AddressCreateRequest{Name: "x"})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)

	//他人の住所
	err = uc.SetDefault(context.Background(), otherCustomer.UserID, env.address.ID)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
