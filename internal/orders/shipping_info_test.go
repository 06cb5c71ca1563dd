package orders

import (
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
)

func TestShippingInfoNormalize(t *testing.T) {
	info := ShippingInfo{
		FirstName:   "  Yasmine ",
		Email:       " Yasmine@Mail.DZ ",
		PhoneNumber: "0661-00-00-00",
		City:        " Oran ",
	}.Normalize()

	if info.FirstName != "Yasmine" || info.City != "Oran" {
		t.Fatalf("fields not trimmed: %+v", info)
	}
	if info.Email != "yasmine@mail.dz" {
		t.Fatalf("email not lower-cased: %q", info.Email)
	}
	if info.PhoneNumber != "+213661000000" {
		t.Fatalf("phone not normalized: %q", info.PhoneNumber)
	}

	raw := ShippingInfo{PhoneNumber: "call me"}.Normalize()
	if raw.PhoneNumber != "call me" {
		t.Fatalf("unparseable phone should be kept for validation, got %q", raw.PhoneNumber)
	}
}

func TestShippingInfoValidate(t *testing.T) {
	valid := validInfo().Normalize()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid info, got %v", err)
	}

	noPostal := valid
	noPostal.PostalCode = ""
	if err := noPostal.Validate(); err != nil {
		t.Fatalf("postal code is optional, got %v", err)
	}

	cases := map[string]func(*ShippingInfo){
		"first_name":   func(s *ShippingInfo) { s.FirstName = "R2D2" },
		"last_name":    func(s *ShippingInfo) { s.LastName = "" },
		"email":        func(s *ShippingInfo) { s.Email = "not-an-email" },
		"phone_number": func(s *ShippingInfo) { s.PhoneNumber = "12345" },
		"address":      func(s *ShippingInfo) { s.Address = "abc" },
		"city":         func(s *ShippingInfo) { s.City = "Lyon" },
		"postal_code":  func(s *ShippingInfo) { s.PostalCode = "1600a" },
	}
	for field, mutate := range cases {
		info := valid
		mutate(&info)
		err := info.Validate()
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		details, _ := pkgerrors.As(err).Details().(map[string]string)
		if _, ok := details[field]; !ok {
			t.Fatalf("%s: missing from details %v", field, details)
		}
	}

	long := valid
	long.Address = strings.Repeat("a", 201)
	if err := long.Validate(); err == nil {
		t.Fatal("expected address length error")
	}

	accented := valid
	accented.FirstName = "Zoé"
	accented.LastName = "Ben-Aïssa"
	accented.City = "Béjaïa"
	if err := accented.Validate(); err != nil {
		t.Fatalf("accented names and wilayas should pass: %v", err)
	}
}
