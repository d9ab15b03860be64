package validator

import (
	"net/http"
	"strings"

	"store/internal/usecase"

	v10 "github.com/go-playground/validator/v10"
)

type authValidator struct {
	validate *v10.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{validate: v10.New()}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(in usecase.RegisterInput) error {
	in.Email = strings.TrimSpace(in.Email)

	if err := v.validate.Struct(in); err != nil {
		return toHTTPError(err)
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(in usecase.LoginInput) error {
	in.Email = strings.TrimSpace(in.Email)

	if err := v.validate.Struct(in); err != nil {
		return toHTTPError(err)
	}
	return nil
}

// validator/v10の違反を最初の1件だけ400に変換する
func toHTTPError(err error) error {
	verrs, ok := err.(v10.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return usecase.NewHTTPError(http.StatusBadRequest, field+" is required")
	case "email":
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email format")
	case "min":
		return usecase.NewHTTPError(http.StatusBadRequest, field+" must be at least "+fe.Param()+" characters")
	default:
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid "+field)
	}
}
