package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

func newAddressUsecase(addresses *AddressRepoMock) *usecase.AddressUsecase {
	return usecase.NewAddressUsecase(addresses, testConfig())
}

func validAddressInput() usecase.AddressInput {
	return usecase.AddressInput{
		FirstName:  "Taro",
		LastName:   "Yamada",
		Line1:      "1-2-3",
		City:       "Shibuya",
		State:      "Tokyo",
		PostalCode: "150-0001",
		Country:    "JP",
	}
}

func TestAddressUsecase_Create_MissingField(t *testing.T) {
	uc := newAddressUsecase(new(AddressRepoMock))

	in := validAddressInput()
	in.City = ""

	_, err := uc.Create(context.Background(), 1, in)
	assertErrContains(t, err, "city is required")
}

func TestAddressUsecase_Create_LimitReached(t *testing.T) {
	addresses := new(AddressRepoMock)
	addresses.On("CountByUserID", mock.Anything, int64(1)).Return(int64(20), nil)

	uc := newAddressUsecase(addresses)

	_, err := uc.Create(context.Background(), 1, validAddressInput())
	assertErrContains(t, err, "address limit")
}

func TestAddressUsecase_Create_Success(t *testing.T) {
	addresses := new(AddressRepoMock)
	addresses.On("CountByUserID", mock.Anything, int64(1)).Return(int64(0), nil)
	addresses.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.UserID == 1 && a.FirstName == "Taro" && a.Type == model.AddressTypeShipping
	})).Return(model.Address{ID: 5, UserID: 1, FirstName: "Taro", IsDefault: true}, nil)

	uc := newAddressUsecase(addresses)

	out, err := uc.Create(context.Background(), 1, validAddressInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)

	addresses.AssertExpectations(t)
}

func TestAddressUsecase_Get_OtherUsers_NotFound(t *testing.T) {
	addresses := new(AddressRepoMock)
	addresses.On("FindByID", mock.Anything, int64(5)).Return(model.Address{ID: 5, UserID: 99}, nil)

	uc := newAddressUsecase(addresses)

	_, err := uc.Get(context.Background(), 1, 5)
	assertErrContains(t, err, "address not found")
}

func TestAddressUsecase_SetDefault_Success(t *testing.T) {
	addresses := new(AddressRepoMock)
	addresses.On("FindByID", mock.Anything, int64(5)).Return(model.Address{ID: 5, UserID: 1}, nil)
	addresses.On("SetDefault", mock.Anything, int64(1), int64(5)).Return(nil)

	uc := newAddressUsecase(addresses)

	out, err := uc.SetDefault(context.Background(), 1, 5)
	assert.NoError(t, err)
	assert.True(t, out.IsDefault)

	addresses.AssertExpectations(t)
}

func TestAddressUsecase_GetDefault_None(t *testing.T) {
	addresses := new(AddressRepoMock)
	addresses.On("FindDefaultByUserID", mock.Anything, int64(1)).Return(model.Address{}, repo.ErrNotFound)

	uc := newAddressUsecase(addresses)

	_, err := uc.GetDefault(context.Background(), 1)
	assertErrContains(t, err, "no default address")
}

// =====================
// CalculateShipping
// =====================

func TestAddressUsecase_CalculateShipping_Domestic(t *testing.T) {
	uc := newAddressUsecase(new(AddressRepoMock))

	out, err := uc.CalculateShipping(context.Background(), usecase.ShippingQuoteInput{
		Country:       "US",
		SubtotalCents: 5000,
		WeightGrams:   1000,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), out.FeeCents)
	assert.False(t, out.FreeShipping)
}

func TestAddressUsecase_CalculateShipping_FreeOverThreshold(t *testing.T) {
	uc := newAddressUsecase(new(AddressRepoMock))

	out, err := uc.CalculateShipping(context.Background(), usecase.ShippingQuoteInput{
		Country:       "US",
		SubtotalCents: 10000,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), out.FeeCents)
	assert.True(t, out.FreeShipping)
}

func TestAddressUsecase_CalculateShipping_HeavyInternationalExpress(t *testing.T) {
	uc := newAddressUsecase(new(AddressRepoMock))

	//基本1000 + 重量(7kg→2kg超過×200=400) + 国外1500 = 2900、速達で+50% = 4350
	out, err := uc.CalculateShipping(context.Background(), usecase.ShippingQuoteInput{
		Country:       "JP",
		SubtotalCents: 5000,
		WeightGrams:   7000,
		Express:       true,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(4350), out.FeeCents)
}

func TestAddressUsecase_CalculateShipping_ExpressNeverFree(t *testing.T) {
	uc := newAddressUsecase(new(AddressRepoMock))

	out, err := uc.CalculateShipping(context.Background(), usecase.ShippingQuoteInput{
		Country:       "US",
		SubtotalCents: 20000,
		Express:       true,
	})
	assert.NoError(t, err)
	assert.False(t, out.FreeShipping)
	assert.Equal(t, int64(1500), out.FeeCents)
}
