// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"strconv"
	"strings"

	"github.com/ManuGH/knotlink/internal/proxy"
)

// Form is a validated link form submission.
type Form struct {
	SubjectID  string
	MerchantID int
	Product    string
}

// FormError lists invalid inputs by field name.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range []string{"user_id", "merchant_id"} {
		if msg, ok := e.Fields[name]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ParseForm validates raw form values. An invalid merchant id is rejected,
// never coerced or submitted.
func ParseForm(subjectID, merchantID, product string) (Form, error) {
	form := Form{
		SubjectID: strings.TrimSpace(subjectID),
		Product:   string(proxy.ParseProduct(product)),
	}
	fields := map[string]string{}

	if form.SubjectID == "" {
		fields["user_id"] = "User ID is required"
	}

	id, err := strconv.Atoi(strings.TrimSpace(merchantID))
	if err != nil || id <= 0 {
		fields["merchant_id"] = "Merchant ID must be a positive integer"
	} else {
		form.MerchantID = id
	}

	if len(fields) > 0 {
		return form, &FormError{Fields: fields}
	}
	return form, nil
}

// Merchant is a suggested merchant shown next to the form.
type Merchant struct {
	ID   int
	Name string
}

// CommonMerchants are the hints shown under the merchant field.
var CommonMerchants = []Merchant{
	{ID: 19, Name: "DoorDash"},
	{ID: 44, Name: "Amazon"},
	{ID: 16, Name: "Netflix"},
	{ID: 991, Name: "Apple TV"},
}
