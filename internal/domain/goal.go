package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalCategory string

const (
	GoalWeight      GoalCategory = "weight"
	GoalStrength    GoalCategory = "strength"
	GoalEndurance   GoalCategory = "endurance"
	GoalFlexibility GoalCategory = "flexibility"
	GoalCustom      GoalCategory = "custom"
)

func (c GoalCategory) Valid() bool {
	switch c {
	case GoalWeight, GoalStrength, GoalEndurance, GoalFlexibility, GoalCustom:
		return true
	}
	return false
}

// Goal is a measurable target for a client. IsCompleted is derived from the
// values and is only ever written through SetCurrentValue.
type Goal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	TargetValue  float64            `bson:"targetValue" json:"targetValue"`
	CurrentValue float64            `bson:"currentValue" json:"currentValue"`
	Unit         string             `bson:"unit" json:"unit"`
	Deadline     time.Time          `bson:"deadline" json:"deadline"`
	Category     GoalCategory       `bson:"category" json:"category"`
	IsCompleted  bool               `bson:"isCompleted" json:"isCompleted"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SetCurrentValue updates the progress value and recomputes completion.
func (g *Goal) SetCurrentValue(v float64) {
	g.CurrentValue = v
	g.IsCompleted = v >= g.TargetValue
}
