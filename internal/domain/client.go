package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionType is the membership plan of a client.
type SubscriptionType string

const (
	SubscriptionStandard     SubscriptionType = "standard"
	SubscriptionPremium      SubscriptionType = "premium"
	SubscriptionPersonalized SubscriptionType = "personalized"
	SubscriptionNone         SubscriptionType = "none"
)

func (s SubscriptionType) Valid() bool {
	switch s {
	case SubscriptionStandard, SubscriptionPremium, SubscriptionPersonalized, SubscriptionNone:
		return true
	}
	return false
}

// SubscriptionStatus is derived from the subscription window on a given day.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionAbsent  SubscriptionStatus = "none"
)

var ErrInvalidEmail = errors.New("email has no local part")

// Client is a gym member. Age is never stored; it is derived from BirthDate.
type Client struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	Email             string              `bson:"email" json:"email"` // unique
	Phone             string              `bson:"phone" json:"phone"` // unique
	BirthDate         time.Time           `bson:"birthDate" json:"birthDate"`
	Weight            float64             `bson:"weight" json:"weight"`
	Height            float64             `bson:"height" json:"height"`
	Goals             []string            `bson:"goals" json:"goals"`
	JoinDate          time.Time           `bson:"joinDate" json:"joinDate"`
	SubscriptionType  SubscriptionType    `bson:"subscriptionType" json:"subscriptionType"`
	SubscriptionStart *time.Time          `bson:"subscriptionStart,omitempty" json:"subscriptionStart,omitempty"`
	SubscriptionEnd   *time.Time          `bson:"subscriptionEnd,omitempty" json:"subscriptionEnd,omitempty"`
	ProfileImage      string              `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	ProfileImageKey   string              `bson:"profileImageKey,omitempty" json:"-"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	EmergencyContact  string              `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	MedicalConditions string              `bson:"medicalConditions,omitempty" json:"medicalConditions,omitempty"`
	UserID            *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // linked identity, one-to-one
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// AgeOn returns the number of full years between birth and day. Both are
// compared as UTC calendar dates.
func AgeOn(birth, day time.Time) int {
	birth, day = TruncateDay(birth), TruncateDay(day)
	years := day.Year() - birth.Year()
	if day.Month() < birth.Month() || (day.Month() == birth.Month() && day.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Age returns the client's age on the given day.
func (c *Client) Age(day time.Time) int {
	return AgeOn(c.BirthDate, day)
}

// SubscriptionStatusOn reports whether the subscription is running on day.
// A missing end date means the subscription never expires.
func (c *Client) SubscriptionStatusOn(day time.Time) SubscriptionStatus {
	if c.SubscriptionType == "" || c.SubscriptionType == SubscriptionNone {
		return SubscriptionAbsent
	}
	if c.SubscriptionEnd != nil && !c.SubscriptionEnd.After(TruncateDay(day)) {
		return SubscriptionExpired
	}
	return SubscriptionActive
}

// DefaultPassword is the two-digit zero-padded age followed by "00".
func DefaultPassword(age int) string {
	return fmt.Sprintf("%02d00", age)
}

// UsernameCandidate is the lowercased local part of an email address.
func UsernameCandidate(email string) (string, error) {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = strings.ToLower(local)
	if local == "" {
		return "", ErrInvalidEmail
	}
	return local, nil
}

// SplitName splits a full name into first name and the remainder.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// TruncateDay drops the time of day, keeping the date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
