package registrations

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	dateparser "github.com/markusmobius/go-dateparser"

	"github.com/dscnitrourkela/project-zucchini/internal/sanitize"
)

// NitrutsavInput is the NITRUTSAV registration form.
type NitrutsavInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Name         string `json:"name" validate:"required,min=2,max=120"`
	Phone        string `json:"phone" validate:"required,phone"`
	Gender       string `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	DateOfBirth  string `json:"dateOfBirth" validate:"required"`
	Institute    string `json:"institute" validate:"required,max=200"`
	University   string `json:"university" validate:"required,max=200"`
	IDCard       string `json:"idCard" validate:"required,url,max=500"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=64"`
	Permission   bool   `json:"permission" validate:"required"`
	Undertaking  bool   `json:"undertaking" validate:"required"`
}

// MunInput is the MUN delegate form. Teammates use the same shape; their
// committee is taken from the leader.
type MunInput struct {
	Email                 string   `json:"email" validate:"required,email,max=254"`
	Name                  string   `json:"name" validate:"required,min=2,max=120"`
	Phone                 string   `json:"phone" validate:"required,phone"`
	Gender                string   `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	DateOfBirth           string   `json:"dateOfBirth" validate:"required"`
	StudentType           string   `json:"studentType" validate:"required,oneof=SCHOOL COLLEGE"`
	Institute             string   `json:"institute" validate:"required,max=200"`
	University            string   `json:"university" validate:"required_if=StudentType COLLEGE,max=200"`
	City                  string   `json:"city" validate:"required,max=100"`
	State                 string   `json:"state" validate:"required,max=100"`
	IDCard                string   `json:"idCard" validate:"required,url,max=500"`
	CommitteeChoice       string   `json:"committeeChoice" validate:"omitempty,committee"`
	PortfolioPreferences  []string `json:"portfolioPreferences" validate:"max=3,dive,max=120"`
	HasParticipatedBefore bool     `json:"hasParticipatedBefore"`
	PreviousExperience    string   `json:"previousExperience" validate:"max=2000"`
	EmergencyContactName  string   `json:"emergencyContactName" validate:"required,max=120"`
	EmergencyContactPhone string   `json:"emergencyContactPhone" validate:"required,phone"`
	AgreedToTerms         bool     `json:"agreedToTerms" validate:"required"`
}

// MunTeamInput registers a leader together with their teammates.
type MunTeamInput struct {
	Leader    MunInput   `json:"leader" validate:"required"`
	Teammates []MunInput `json:"teammates" validate:"dive"`
}

const (
	minAge = 10
	maxAge = 60
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("committee", func(fl validator.FieldLevel) bool {
		return Committee(fl.Field().String()).Valid()
	})
	return v
}

// validPhone accepts 10 to 15 digits with an optional leading '+' and
// spaces or dashes between groups.
func validPhone(raw string) bool {
	digits := 0
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 10 && digits <= 15
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace:
// "MunTeamInput.teammates[0].email" becomes "teammates[0].email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return "must be accepted"
		}
		return "is required"
	case "required_if":
		return "is required for college students"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "phone":
		return "must be a valid phone number"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "committee":
		return "must be a known committee"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " entries"
		}
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// ParseDateOfBirth accepts ISO dates, day-first numeric dates, and textual
// dates such as "5 June 2004".
func ParseDateOfBirth(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("is required")
	}

	var parsed time.Time
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			parsed = t
			break
		}
	}
	if parsed.IsZero() {
		dt, err := dateparser.Parse(nil, raw)
		if err != nil || dt.Time.IsZero() {
			return time.Time{}, fmt.Errorf("must be a valid date")
		}
		parsed = dt.Time
	}

	dob := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	age := yearsBetween(dob, now)
	if age < minAge || age > maxAge {
		return time.Time{}, fmt.Errorf("must give an age between %d and %d", minAge, maxAge)
	}
	return dob, nil
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

func (s *Service) validateNitrutsav(in NitrutsavInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, toValidationError(err)
	}
	dob, err := ParseDateOfBirth(in.DateOfBirth, s.now())
	if err != nil {
		return User{}, fieldError("dateOfBirth", err.Error())
	}
	return User{
		Email:        sanitize.Email(in.Email),
		Name:         sanitize.Text(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Gender:       Gender(in.Gender),
		DateOfBirth:  dob,
		Institute:    sanitize.Text(in.Institute),
		University:   sanitize.Text(in.University),
		IDCardURL:    strings.TrimSpace(in.IDCard),
		ReferralCode: sanitize.Text(in.ReferralCode),
		Permission:   in.Permission,
		Undertaking:  in.Undertaking,
	}, nil
}

func (s *Service) munFromInput(in MunInput, field string) (MunRegistration, error) {
	dob, err := ParseDateOfBirth(in.DateOfBirth, s.now())
	if err != nil {
		return MunRegistration{}, fieldError(field+"dateOfBirth", err.Error())
	}
	return MunRegistration{
		Email:                 sanitize.Email(in.Email),
		Name:                  sanitize.Text(in.Name),
		Phone:                 strings.TrimSpace(in.Phone),
		Gender:                Gender(in.Gender),
		DateOfBirth:           dob,
		StudentType:           StudentType(in.StudentType),
		Institute:             sanitize.Text(in.Institute),
		University:            sanitize.Text(in.University),
		City:                  sanitize.Text(in.City),
		State:                 sanitize.Text(in.State),
		IDCardURL:             strings.TrimSpace(in.IDCard),
		Committee:             Committee(in.CommitteeChoice),
		PortfolioPreferences:  sanitize.TextSlice(in.PortfolioPreferences),
		HasParticipatedBefore: in.HasParticipatedBefore,
		PreviousExperience:    sanitize.Text(in.PreviousExperience),
		EmergencyContactName:  sanitize.Text(in.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(in.EmergencyContactPhone),
	}, nil
}
