package registrations

import (
	"strconv"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type StudentType string

const (
	StudentSchool  StudentType = "SCHOOL"
	StudentCollege StudentType = "COLLEGE"
)

type Committee string

const (
	CommitteeUNGA               Committee = "UNGA_DISEC"
	CommitteeUNHRC              Committee = "UNHRC"
	CommitteeUNSC               Committee = "UNSC"
	CommitteeAIPPM              Committee = "AIPPM"
	CommitteeInternationalPress Committee = "INTERNATIONAL_PRESS"
	CommitteeMootCourt          Committee = "MOOT_COURT"
)

// Committees lists every committee a delegate can choose.
var Committees = []Committee{
	CommitteeUNGA,
	CommitteeUNHRC,
	CommitteeUNSC,
	CommitteeAIPPM,
	CommitteeInternationalPress,
	CommitteeMootCourt,
}

// TeamSize is the number of people one registration covers.
func (c Committee) TeamSize() int {
	if c == CommitteeMootCourt {
		return 3
	}
	return 1
}

func (c Committee) Valid() bool {
	for _, known := range Committees {
		if c == known {
			return true
		}
	}
	return false
}

type EventType string

const (
	EventNitrutsav EventType = "NITRUTSAV"
	EventMun       EventType = "MUN"
)

// User is a NITRUTSAV registration.
type User struct {
	ID           int64
	FirebaseUID  string
	Email        string
	Name         string
	Phone        string
	Gender       Gender
	DateOfBirth  time.Time
	Institute    string
	University   string
	IDCardURL    string
	ReferralCode string
	Permission   bool
	Undertaking  bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MunRegistration is one delegate. Teammates registered by a leader have no
// FirebaseUID until they sign in and are linked.
type MunRegistration struct {
	ID                    int64
	FirebaseUID           string
	Email                 string
	Name                  string
	Phone                 string
	Gender                Gender
	DateOfBirth           time.Time
	StudentType           StudentType
	Institute             string
	University            string
	City                  string
	State                 string
	IDCardURL             string
	Committee             Committee
	PortfolioPreferences  []string
	HasParticipatedBefore bool
	PreviousExperience    string
	EmergencyContactName  string
	EmergencyContactPhone string
	IsTeamLeader          bool
	TeamID                string
	IsVerified            bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TeamKey identifies the payment unit a delegate belongs to.
func (m MunRegistration) TeamKey() string {
	if m.TeamID != "" {
		return m.TeamID
	}
	if m.FirebaseUID != "" {
		return m.FirebaseUID
	}
	return "individual-" + strconv.FormatInt(m.ID, 10)
}

// CrossRegistration summarises which event an identity is registered for.
type CrossRegistration struct {
	IsMunRegistered       bool       `json:"isMunRegistered"`
	IsNitrutsavRegistered bool       `json:"isNitrutsavRegistered"`
	RegistrationType      *EventType `json:"registrationType"`
	UserID                *int64     `json:"userId"`
	Name                  *string    `json:"name"`
	Email                 *string    `json:"email"`
	IsPaymentVerified     bool       `json:"isPaymentVerified"`
}

// MunStatus is the MUN-only registration check.
type MunStatus struct {
	IsRegistered      bool    `json:"isRegistered"`
	UserID            *int64  `json:"userId"`
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	IsPaymentVerified bool    `json:"isPaymentVerified"`
	TeamID            *string `json:"teamId"`
	IsTeamLeader      bool    `json:"isTeamLeader"`
}

// Team is every delegate sharing one team key.
type Team struct {
	Key        string
	Committee  Committee
	IsVerified bool
	Members    []MunRegistration
}

const nitrEmailDomain = "@nitrkl.ac.in"

// IsNITRStudent reports whether a registration belongs to NIT Rourkela.
func IsNITRStudent(email, institute string) bool {
	if strings.HasSuffix(strings.ToLower(email), nitrEmailDomain) {
		return true
	}
	inst := strings.ToLower(institute)
	return strings.Contains(inst, "nit rourkela") ||
		strings.Contains(inst, "national institute of technology rourkela") ||
		strings.Contains(inst, "national institute of technology, rourkela")
}
