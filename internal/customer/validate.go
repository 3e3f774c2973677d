package customer

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9+ ]+$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Onboarding is the payload a pending customer submits to complete its record.
type Onboarding struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	VAT      string `json:"vat" validate:"omitempty,min=3,max=50"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Country  string `json:"country" validate:"required,country"`
	City     string `json:"city" validate:"required"`
	Address1 string `json:"address1" validate:"required"`
	Address2 string `json:"address2"`
	PostCode string `json:"pc" validate:"required"`
	Terms    string `json:"terms"`
}

// trim strips surrounding whitespace from every field.
func (o *Onboarding) trim() {
	for _, f := range []*string{
		&o.Name, &o.Email, &o.VAT, &o.Phone, &o.Country,
		&o.City, &o.Address1, &o.Address2, &o.PostCode,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Update converts the payload into a customer update.
func (o Onboarding) Update() domain.CustomerUpdate {
	return domain.CustomerUpdate{
		Name:     o.Name,
		Email:    o.Email,
		VAT:      o.VAT,
		Phone:    o.Phone,
		Country:  o.Country,
		City:     o.City,
		Address1: o.Address1,
		Address2: o.Address2,
		PostCode: o.PostCode,
	}
}

// Validator checks onboarding payloads.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator with the phone and country rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]*regexp.Regexp{
		"phone":   phonePattern,
		"country": countryPattern,
	}
	for tag, pattern := range rules {
		if err := v.RegisterValidation(tag, matches(pattern)); err != nil {
			panic(fmt.Sprintf("customer: register %q rule: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

// Validate trims o in place and reports the first rule it breaks.
func (v *Validator) Validate(o *Onboarding) error {
	o.trim()
	err := v.v.Struct(o)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return domain.Invalid(message(errs[0]))
	}
	return domain.Invalid(err.Error())
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "phone":
		return fmt.Sprintf("%q must contain only digits, '+' and spaces", field)
	case "country":
		return fmt.Sprintf("%q must be a two-letter uppercase country code", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
