package forms

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validContact() map[string]any {
	return map[string]any{
		"name":      "Marie Muller",
		"email":     "marie@example.lu",
		"subject":   "devis",
		"message":   "Bonjour, je souhaite un devis pour dix lignes mobiles.",
		"csrfToken": "tok",
	}
}

func validQuote() map[string]any {
	return map[string]any{
		"companyName":    "Fenster S.A.",
		"companySize":    "11-50 employés",
		"industry":       "Construction",
		"servicesNeeded": []any{"Téléphonie fixe", "Internet"},
		"budgetRange":    "5 000€ - 15 000€",
		"timeline":       "Court terme (1-3 mois)",
		"description":    "Migration complète de notre téléphonie vers le cloud.",
		"contactName":    "Jean Weber",
		"contactEmail":   "jean@fenster.lu",
		"contactPhone":   "+352 26 12 34 56",
		"gdprConsent":    true,
		"csrfToken":      "tok",
	}
}

func TestValidateContactValid(t *testing.T) {
	res := Validate(Contact(), validContact())
	if !res.Valid {
		t.Fatalf("expected valid, got errors %v", res.Errors)
	}
	want := validContact()
	if diff := cmp.Diff(want, res.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateContactMissingFields(t *testing.T) {
	res := Validate(Contact(), map[string]any{})
	if res.Valid {
		t.Fatal("expected invalid")
	}
	want := []FieldError{
		{Field: "name", Message: "Champ requis"},
		{Field: "email", Message: "Champ requis"},
		{Field: "subject", Message: "Champ requis"},
		{Field: "message", Message: "Champ requis"},
		{Field: "csrfToken", Message: "Token CSRF manquant"},
	}
	if diff := cmp.Diff(want, res.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFirstViolationWins(t *testing.T) {
	payload := validContact()
	payload["message"] = "court"
	res := Validate(Contact(), payload)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected a single error, got %v", res.Errors)
	}
	got := res.Errors[0]
	if got.Field != "message" || got.Message != "Le message doit contenir au moins 10 caractères" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestValidateWhitespaceOnlyFailsMin(t *testing.T) {
	payload := validContact()
	payload["name"] = "            "
	res := Validate(Contact(), payload)
	if res.Valid {
		t.Fatal("whitespace-only name passed")
	}
	if res.Errors[0].Field != "name" {
		t.Fatalf("expected name error, got %+v", res.Errors[0])
	}
}

func TestValidateEmailNormalized(t *testing.T) {
	payload := validContact()
	payload["email"] = "  Marie@Example.LU  "
	res := Validate(Contact(), payload)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if got := res.Values["email"]; got != "marie@example.lu" {
		t.Fatalf("email not normalized: %q", got)
	}
}

func TestValidateEmailFormat(t *testing.T) {
	for _, bad := range []string{"plainaddress", "a@b", "a b@c.lu", "@no-local.lu"} {
		payload := validContact()
		payload["email"] = bad
		res := Validate(Contact(), payload)
		if res.Valid {
			t.Fatalf("email %q accepted", bad)
		}
		if res.Errors[0].Message != "Adresse email invalide" {
			t.Fatalf("email %q: unexpected message %q", bad, res.Errors[0].Message)
		}
	}
}

func TestValidateGDPRConsentFalse(t *testing.T) {
	payload := validQuote()
	payload["gdprConsent"] = false
	res := Validate(Quote(), payload)
	if res.Valid {
		t.Fatal("consent=false accepted")
	}
	got := res.Errors[0]
	if got.Field != "gdprConsent" || got.Message != "Le consentement RGPD est requis" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	payload := validContact()
	payload["name"] = 42.0
	res := Validate(Contact(), payload)
	if res.Valid {
		t.Fatal("numeric name accepted")
	}
	got := res.Errors[0]
	if got.Field != "name" || got.Message != "Valeur invalide" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	payload := validContact()
	payload["admin"] = true
	payload["x"] = "y"
	res := Validate(Contact(), payload)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if _, ok := res.Values["admin"]; ok {
		t.Fatal("unknown field leaked into values")
	}
}

func TestValidateEnumRejected(t *testing.T) {
	payload := validContact()
	payload["subject"] = "hacking"
	res := Validate(Contact(), payload)
	if res.Valid {
		t.Fatal("out-of-enum subject accepted")
	}
	if res.Errors[0].Field != "subject" {
		t.Fatalf("expected subject error, got %+v", res.Errors[0])
	}
}

func TestValidateOptionalAbsent(t *testing.T) {
	res := Validate(Contact(), validContact())
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if _, ok := res.Values["phone"]; ok {
		t.Fatal("absent optional field materialized a value")
	}
}

func TestValidateQuoteValid(t *testing.T) {
	res := Validate(Quote(), validQuote())
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	got, ok := res.Values["servicesNeeded"].([]string)
	if !ok {
		t.Fatalf("servicesNeeded not typed: %T", res.Values["servicesNeeded"])
	}
	if diff := cmp.Diff([]string{"Téléphonie fixe", "Internet"}, got); diff != "" {
		t.Fatalf("servicesNeeded mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateQuoteEmptyServices(t *testing.T) {
	payload := validQuote()
	payload["servicesNeeded"] = []any{}
	res := Validate(Quote(), payload)
	if res.Valid {
		t.Fatal("empty services accepted")
	}
	got := res.Errors[0]
	if got.Field != "servicesNeeded" || got.Message != "Veuillez sélectionner au moins un service" {
		t.Fatalf("unexpected error %+v", got)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	payload := validContact()
	payload["email"] = "  Marie@Example.LU  "
	Validate(Contact(), payload)
	if payload["email"] != "  Marie@Example.LU  " {
		t.Fatal("input map mutated")
	}
}

func TestValidateField(t *testing.T) {
	s := Contact()
	if msg := ValidateField(s, "name", "Marie"); msg != "" {
		t.Fatalf("valid name rejected: %q", msg)
	}
	if msg := ValidateField(s, "name", nil); msg != "Champ requis" {
		t.Fatalf("absent name: %q", msg)
	}
	if msg := ValidateField(s, "email", "nope"); msg != "Adresse email invalide" {
		t.Fatalf("bad email: %q", msg)
	}
	if msg := ValidateField(s, "nonexistent", "x"); msg != "" {
		t.Fatalf("undeclared field produced %q", msg)
	}
}
