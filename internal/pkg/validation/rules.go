package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

var validate = New()

// New returns a validator with the portal's custom tags registered and field
// names reported by their json/form name.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	Register(v)
	return v
}

// Register adds the custom tags to v. Used for gin's binding engine too.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("semester", func(fl validator.FieldLevel) bool {
		return models.Semester(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		return models.ValidLevel(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("reaction", func(fl validator.FieldLevel) bool {
		return models.ReactionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return models.DocumentType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Struct validates s and converts the first failure into a ValidationError
// naming the offending field.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(FormatFieldError(fe)).WithField(fe.Field())
	}
	return apperrors.NewValidationError(err.Error())
}

// FormatFieldError creates a human-readable validation error message
func FormatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", e.Field(), e.Param())
		}
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "lte":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "semester":
		return fmt.Sprintf("%s must be %q or %q", e.Field(), models.SemesterFirst, models.SemesterSecond)
	case "level":
		return e.Field() + " must be one of 100, 200, 300, 400, 500"
	case "reaction":
		return e.Field() + " must be one of smile, heart, thumbsUp, wow, sad"
	case "doctype":
		return e.Field() + " must be one of REGISTRATION_SLIP, FEES_RECEIPT, DEPARTMENTAL_DUES_RECEIPT"
	case "notblank":
		return e.Field() + " must not be blank"
	case "iso4217":
		return e.Field() + " must be a three letter currency code"
	default:
		return e.Field() + " failed validation: " + e.Tag()
	}
}
