package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientRoutine assigns a routine to a client over a time window. At most one
// row per (ClientID, RoutineID) may be active; the store enforces it with a
// partial unique index.
type ClientRoutine struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	RoutineID    primitive.ObjectID `bson:"routineId" json:"routineId"`
	StartDate    time.Time          `bson:"startDate" json:"startDate"`
	EndDate      *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	AssignedDays []Weekday          `bson:"assignedDays" json:"assignedDays"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Deactivate closes the assignment. An end date that was already set is kept.
func (a *ClientRoutine) Deactivate(day time.Time) {
	a.IsActive = false
	if a.EndDate == nil {
		end := TruncateDay(day)
		a.EndDate = &end
	}
}

// RoutineProgress records one logged workout session for an assignment.
type RoutineProgress struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientRoutineID primitive.ObjectID `bson:"clientRoutineId" json:"clientRoutineId"`
	ClientID        primitive.ObjectID `bson:"clientId" json:"clientId"` // denormalized for cascade deletes
	WorkoutID       primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	CompletedAt     time.Time          `bson:"completedAt" json:"completedAt"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Rating          *int               `bson:"rating,omitempty" json:"rating,omitempty"`
}
