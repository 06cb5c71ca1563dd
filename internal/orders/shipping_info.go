package orders

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/phone"
)

// ShippingInfo is the delivery contact captured on an order.
type ShippingInfo struct {
	FirstName   string `json:"first_name" validate:"required,max=50,person_name"`
	LastName    string `json:"last_name" validate:"required,max=50,person_name"`
	Email       string `json:"email" validate:"required,email,max=50"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Address     string `json:"address" validate:"required,min=5,max=200"`
	City        string `json:"city" validate:"required,wilaya"`
	PostalCode  string `json:"postal_code" validate:"omitempty,numeric,len=5"`
}

// Wilayas are the accepted delivery cities.
var Wilayas = []string{
	"Adrar", "Chlef", "Laghouat", "Oum El Bouaghi", "Batna", "Béjaïa", "Biskra", "Béchar",
	"Blida", "Bouira", "Tamanrasset", "Tébessa", "Tlemcen", "Tiaret", "Tizi Ouzou", "Algers",
	"Djelfa", "Jijel", "Sétif", "Saïda", "Skikda", "Sidi Bel Abbès", "Annaba", "Guelma",
	"Constantine", "Médéa", "Mostaganem", "M'Sila", "Mascara", "Ouargla", "Oran", "El Bayadh",
	"Illizi", "Bordj Bou Arréridj", "Boumerdès", "El Tarf", "Tindouf", "Tissemsilt", "El Oued",
	"Khenchela", "Souk Ahras", "Tipaza", "Mila", "Aïn Defla", "Naâma", "Aïn Témouchent",
	"Ghardaïa", "Relizane", "Timimoun", "Bordj Badji Mokhtar", "Ouled Djellal", "Béni Abbès",
	"In Salah", "In Guezzam", "Touggourt", "Djanet", "El M'Ghair", "El Menia",
}

var (
	namePattern = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ '-]+$`)
	wilayaSet   = func() map[string]struct{} {
		out := make(map[string]struct{}, len(Wilayas))
		for _, w := range Wilayas {
			out[w] = struct{}{}
		}
		return out
	}()
	shippingValidator = newShippingValidator()
)

func newShippingValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("wilaya", func(fl validator.FieldLevel) bool {
		_, ok := wilayaSet[fl.Field().String()]
		return ok
	})
	return v
}

// Normalize trims every field and rewrites the phone number to E.164.
func (s ShippingInfo) Normalize() ShippingInfo {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.PhoneNumber = strings.TrimSpace(s.PhoneNumber)
	s.Address = strings.TrimSpace(s.Address)
	s.City = strings.TrimSpace(s.City)
	s.PostalCode = strings.TrimSpace(s.PostalCode)
	if normalized, err := phone.Normalize(s.PhoneNumber); err == nil {
		s.PhoneNumber = normalized
	}
	return s
}

// Validate checks a normalized ShippingInfo and reports every failing field
// in the error details.
func (s ShippingInfo) Validate() error {
	details := map[string]string{}
	if err := shippingValidator.Struct(s); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping info")
		}
		for _, fe := range errs {
			details[fe.Field()] = fieldMessage(fe)
		}
	}
	if s.PhoneNumber != "" {
		if _, err := phone.Normalize(s.PhoneNumber); err != nil {
			details["phone_number"] = "must be a valid phone number"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping info").WithDetails(details)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "person_name":
		return "may only contain letters, spaces, hyphens and apostrophes"
	case "wilaya":
		return "must be a known wilaya"
	case "numeric", "len":
		return "must be 5 digits"
	}
	return "is invalid"
}
