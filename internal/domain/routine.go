package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyCustom
}

// Routine groups workouts into a multi-week program.
type Routine struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Description   string               `bson:"description" json:"description"`
	WorkoutIDs    []primitive.ObjectID `bson:"workoutIds" json:"workoutIds"`
	Frequency     Frequency            `bson:"frequency" json:"frequency"`
	DaysPerWeek   int                  `bson:"daysPerWeek" json:"daysPerWeek"`
	Duration      int                  `bson:"duration" json:"duration"` // weeks
	ScheduledDays []Weekday            `bson:"scheduledDays" json:"scheduledDays"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}
