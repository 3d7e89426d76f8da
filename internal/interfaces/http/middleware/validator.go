package middleware

import (
	"reflect"
	"strings"

	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures gin's binding validator: error messages use
// JSON field names and a `cnpj` tag validates Receita check digits.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewCNPJ(fl.Field().String())
		return err == nil
	})
}
