package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

const maxAddressesPerUser = 20

type AddressUsecase struct {
	addresses repo.AddressRepository
	cfg       config.Config
}

func NewAddressUsecase(addresses repo.AddressRepository, cfg config.Config) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, cfg: cfg}
}

type AddressInput struct {
	Type       string
	FirstName  string
	LastName   string
	Company    string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	IsDefault  bool
}

func (in AddressInput) validate() error {
	required := map[string]string{
		"first_name":  in.FirstName,
		"last_name":   in.LastName,
		"line1":       in.Line1,
		"city":        in.City,
		"state":       in.State,
		"postal_code": in.PostalCode,
		"country":     in.Country,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			return NewHTTPError(http.StatusBadRequest, field+" is required")
		}
	}
	if in.Type != "" && in.Type != string(model.AddressTypeShipping) && in.Type != string(model.AddressTypeBilling) {
		return NewHTTPError(http.StatusBadRequest, "type must be shipping or billing")
	}
	return nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}

	count, err := u.addresses.CountByUserID(ctx, userID)
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if count >= maxAddressesPerUser {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, "address limit reached")
	}

	addr := model.Address{
		UserID:     userID,
		Type:       model.AddressTypeShipping,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Company:    strings.TrimSpace(in.Company),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
	}
	if in.Type != "" {
		addr.Type = model.AddressType(in.Type)
	}

	created, err := u.addresses.Create(ctx, addr)
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	addresses, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return addresses, nil
}

func (u *AddressUsecase) Get(ctx context.Context, userID, addressID int64) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.findOwned(ctx, userID, addressID)
}

func (u *AddressUsecase) Update(ctx context.Context, userID, addressID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}

	addr, err := u.findOwned(ctx, userID, addressID)
	if err != nil {
		return model.Address{}, err
	}

	addr.FirstName = strings.TrimSpace(in.FirstName)
	addr.LastName = strings.TrimSpace(in.LastName)
	addr.Company = strings.TrimSpace(in.Company)
	addr.Line1 = strings.TrimSpace(in.Line1)
	addr.Line2 = strings.TrimSpace(in.Line2)
	addr.City = strings.TrimSpace(in.City)
	addr.State = strings.TrimSpace(in.State)
	addr.PostalCode = strings.TrimSpace(in.PostalCode)
	addr.Country = strings.TrimSpace(in.Country)
	addr.Phone = strings.TrimSpace(in.Phone)
	if in.Type != "" {
		addr.Type = model.AddressType(in.Type)
	}

	if err := u.addresses.Update(ctx, addr); err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//is_defaultの切り替えは排他制御込みでSetDefault経由
	if in.IsDefault && !addr.IsDefault {
		if err := u.addresses.SetDefault(ctx, userID, addr.ID); err != nil {
			return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		addr.IsDefault = true
	}

	return addr, nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if _, err := u.findOwned(ctx, userID, addressID); err != nil {
		return err
	}

	if err := u.addresses.Delete(ctx, addressID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID, addressID int64) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	addr, err := u.findOwned(ctx, userID, addressID)
	if err != nil {
		return model.Address{}, err
	}

	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	addr.IsDefault = true
	return addr, nil
}

func (u *AddressUsecase) GetDefault(ctx context.Context, userID int64) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	addr, err := u.addresses.FindDefaultByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "no default address")
	}
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return addr, nil
}

type ShippingQuoteInput struct {
	Country       string
	SubtotalCents int64
	WeightGrams   int64
	Express       bool
}

type ShippingQuoteOutput struct {
	FeeCents     int64  `json:"fee_cents"`
	FreeShipping bool   `json:"free_shipping"`
	Currency     string `json:"currency"`
}

// 送料見積もり。
// 基本料金＋5kg超の重量加算＋国外加算、速達は5割増し。
// 小計が閾値以上なら無料（速達除く）。
func (u *AddressUsecase) CalculateShipping(ctx context.Context, in ShippingQuoteInput) (ShippingQuoteOutput, error) {
	if in.SubtotalCents < 0 {
		return ShippingQuoteOutput{}, NewHTTPError(http.StatusBadRequest, "subtotal_cents must not be negative")
	}
	if in.WeightGrams < 0 {
		return ShippingQuoteOutput{}, NewHTTPError(http.StatusBadRequest, "weight_grams must not be negative")
	}

	if !in.Express && in.SubtotalCents >= u.cfg.FreeShippingThreshold {
		return ShippingQuoteOutput{FeeCents: 0, FreeShipping: true, Currency: u.cfg.Currency}, nil
	}

	fee := u.cfg.ShippingFeeCents

	//5kgを超えたら1kgごとに200加算
	if in.WeightGrams > 5000 {
		extraKG := (in.WeightGrams - 5000 + 999) / 1000
		fee += extraKG * 200
	}

	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if country != "" && country != "US" && country != "USA" && country != "UNITED STATES" {
		fee += 1500
	}

	if in.Express {
		fee += fee / 2
	}

	return ShippingQuoteOutput{FeeCents: fee, FreeShipping: false, Currency: u.cfg.Currency}, nil
}

func (u *AddressUsecase) findOwned(ctx context.Context, userID, addressID int64) (model.Address, error) {
	if addressID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	addr, err := u.addresses.FindByID(ctx, addressID)
	if err == repo.ErrNotFound {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	return addr, nil
}
