package request

import (
	"flightshare/internal/domain/ledger"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding tags used by request DTOs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		_, err := ledger.NewPaymentMethod(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("external_ref", func(fl validator.FieldLevel) bool {
		_, err := ledger.NewExternalReference(fl.Field().String())
		return err == nil
	})
}
