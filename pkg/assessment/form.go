package assessment

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

// Form field names, matching the wire names of the prediction endpoint.
const (
	FieldAge         = "age"
	FieldGender      = "gender"
	FieldHeight      = "height"
	FieldWeight      = "weight"
	FieldSystolic    = "ap_hi"
	FieldDiastolic   = "ap_lo"
	FieldCholesterol = "cholesterol"
	FieldGlucose     = "gluc"
	FieldSmoker      = "smoke"
	FieldAlcohol     = "alco"
	FieldActive      = "active"
)

// FormFields lists every field an assessment form must carry.
var FormFields = []string{
	FieldAge, FieldGender, FieldHeight, FieldWeight, FieldSystolic, FieldDiastolic,
	FieldCholesterol, FieldGlucose, FieldSmoker, FieldAlcohol, FieldActive,
}

// FromForm converts raw form values into an input. Missing and unparsable
// fields, and fields outside their bounds, are all reported in one
// *apperr.ValidationError.
func FromForm(values url.Values) (models.AssessmentInput, error) {
	var in models.AssessmentInput
	verr := &apperr.ValidationError{}
	p := formParser{values: values, verr: verr}

	in.Age = p.int(FieldAge)
	in.Height = p.int(FieldHeight)
	in.Weight = p.float(FieldWeight)
	in.APHi = p.int(FieldSystolic)
	in.APLo = p.int(FieldDiastolic)

	if raw, ok := p.get(FieldGender); ok {
		g, err := models.ParseGender(raw)
		if err != nil {
			verr.Add(FieldGender, "must be female or male")
		}
		in.Gender = g
	}
	in.Cholesterol = p.level(FieldCholesterol)
	in.Glucose = p.level(FieldGlucose)
	in.Smoker = p.flag(FieldSmoker)
	in.Alcohol = p.flag(FieldAlcohol)
	in.Active = p.flag(FieldActive)

	// range checks for the fields that did parse
	if err := Validate(in); err != nil {
		var rangeErr *apperr.ValidationError
		if !errors.As(err, &rangeErr) {
			return in, err
		}
		for _, f := range rangeErr.Fields {
			if !verr.Has(f.Field) {
				verr.Add(f.Field, f.Message)
			}
		}
	}
	return in, verr.OrNil()
}

type formParser struct {
	values url.Values
	verr   *apperr.ValidationError
}

func (p formParser) get(field string) (string, bool) {
	raw := strings.TrimSpace(p.values.Get(field))
	if raw == "" {
		p.verr.Add(field, "is required")
		return "", false
	}
	return raw, true
}

func (p formParser) int(field string) int {
	raw, ok := p.get(field)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// JSON numbers arrive as "165" or "165.0"
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			p.verr.Add(field, "must be a whole number")
			return 0
		}
		n = int(f)
	}
	return n
}

func (p formParser) float(field string) float64 {
	raw, ok := p.get(field)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.verr.Add(field, "must be a number")
		return 0
	}
	return f
}

func (p formParser) level(field string) models.Level {
	raw, ok := p.get(field)
	if !ok {
		return 0
	}
	l, err := models.ParseLevel(raw)
	if err != nil {
		p.verr.Add(field, "must be normal, above-normal or well-above-normal")
		return 0
	}
	return l
}

func (p formParser) flag(field string) bool {
	raw, ok := p.get(field)
	if !ok {
		return false
	}
	b, err := models.ParseFlag(raw)
	if err != nil {
		p.verr.Add(field, "must be yes or no")
		return false
	}
	return b
}
