package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lumiere-shop/storefront/payment"
)

var validate = validator.New()

// Form is the shipping and contact data collected before an order is
// placed. State is optional; Country defaults to the configured default
// country when left empty.
type Form struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Phone     string `validate:"required"`
	Address   string `validate:"required"`
	City      string `validate:"required"`
	State     string
	ZipCode   string `validate:"required"`
	Country   string
}

// fieldLabels maps struct fields to the wording used in validation
// messages shown to the payer
var fieldLabels = map[string]string{
	"FirstName": "First name",
	"LastName":  "Last name",
	"Email":     "Email",
	"Phone":     "Phone number",
	"Address":   "Address",
	"City":      "City",
	"ZipCode":   "Postal code",
}

// Validate checks required fields, returning a user-facing message for
// the first failing field
func (f Form) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	first := verrs[0]
	label := fieldLabels[first.StructField()]
	if label == "" {
		label = first.StructField()
	}
	if first.Tag() == "email" {
		return fmt.Errorf("%s must be a valid email address", label)
	}
	return fmt.Errorf("%s is required", label)
}

// FullName joins the first and last name for gateway prefill and the
// shipping address snapshot
func (f Form) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

func (f Form) shippingAddress(defaultCountry string) payment.ShippingAddress {
	country := f.Country
	if country == "" {
		country = defaultCountry
	}
	return payment.ShippingAddress{
		Name:       f.FullName(),
		Phone:      f.Phone,
		Line1:      f.Address,
		City:       f.City,
		State:      f.State,
		PostalCode: f.ZipCode,
		Country:    country,
	}
}
