package handlers

import (
	"reflect"
	"sync"

	"github.com/SscSPs/enrollment_engine/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerValidatorsOnce sync.Once

// RegisterValidators adds the domain validation tags to gin's validator engine.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Decimals validate as their string form.
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})

		_ = v.RegisterValidation("positive_amount", validatePositiveAmount)
		_ = v.RegisterValidation("payment_state", validatePaymentState)
		_ = v.RegisterValidation("item_kind", validateItemKind)
		_ = v.RegisterValidation("cart_kind", validateCartKind)
	})
}

func validatePositiveAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}

func validatePaymentState(fl validator.FieldLevel) bool {
	return domain.PaymentState(fl.Field().String()).Valid()
}

func validateItemKind(fl validator.FieldLevel) bool {
	switch domain.ItemKind(fl.Field().String()) {
	case domain.ItemKindWorkshop, domain.ItemKindCourse:
		return true
	}
	return false
}

func validateCartKind(fl validator.FieldLevel) bool {
	switch domain.CartItemKind(fl.Field().String()) {
	case domain.CartProduct, domain.CartWorkshop, domain.CartCourse:
		return true
	}
	return false
}
