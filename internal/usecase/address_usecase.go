package usecase

import (
	"context"
	"net/http"
	"strings"

	"store/internal/domain/model"
	repo "store/internal/repository"
)

// AddressUsecase は /addresses の業務ロジック。
type AddressUsecase struct {
	addressRepo repo.AddressRepository
}

func NewAddressUsecase(addressRepo repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addressRepo: addressRepo}
}

type AddressInput struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
	IsDefault  bool
}

func validateAddressInput(in AddressInput) error {
	if strings.TrimSpace(in.Street) == "" {
		return NewHTTPError(http.StatusBadRequest, "street is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "city is required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return NewHTTPError(http.StatusBadRequest, "country is required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return NewHTTPError(http.StatusBadRequest, "postal_code is required")
	}
	return nil
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	addrs, err := u.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]AddressOutput, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, *toAddressOutput(a))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (AddressOutput, error) {
	if userID <= 0 {
		return AddressOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateAddressInput(in); err != nil {
		return AddressOutput{}, err
	}

	addr, err := u.addressRepo.Create(ctx, model.Address{
		UserID:     userID,
		Street:     in.Street,
		City:       in.City,
		State:      in.State,
		Country:    in.Country,
		PostalCode: in.PostalCode,
	})
	if err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//is_default指定時は他の住所を解除してから設定
	if in.IsDefault {
		if err := u.addressRepo.SetDefault(ctx, userID, addr.ID); err != nil {
			return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		addr.IsDefault = true
	}

	return *toAddressOutput(addr), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, in AddressInput) (AddressOutput, error) {
	if userID <= 0 {
		return AddressOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return AddressOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateAddressInput(in); err != nil {
		return AddressOutput{}, err
	}

	owned, err := u.addressRepo.IsOwnedByUser(ctx, addressID, userID)
	if err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return AddressOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
	}

	addr, err := u.addressRepo.FindByID(ctx, addressID)
	if err != nil {
		if err == repo.ErrNotFound {
			return AddressOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	addr.Street = in.Street
	addr.City = in.City
	addr.State = in.State
	addr.Country = in.Country
	addr.PostalCode = in.PostalCode

	if err := u.addressRepo.Update(ctx, addr); err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.IsDefault && !addr.IsDefault {
		if err := u.addressRepo.SetDefault(ctx, userID, addr.ID); err != nil {
			return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		addr.IsDefault = true
	}

	return *toAddressOutput(addr), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.addressRepo.IsOwnedByUser(ctx, addressID, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return NewHTTPError(http.StatusNotFound, "address not found")
	}

	if err := u.addressRepo.Delete(ctx, addressID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "address not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// SetDefault は既定住所の切替（他住所の既定フラグは解除される）。
func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) (AddressOutput, error) {
	if userID <= 0 {
		return AddressOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return AddressOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.addressRepo.IsOwnedByUser(ctx, addressID, userID)
	if err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return AddressOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
	}

	if err := u.addressRepo.SetDefault(ctx, userID, addressID); err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	addr, err := u.addressRepo.FindByID(ctx, addressID)
	if err != nil {
		return AddressOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return *toAddressOutput(addr), nil
}
