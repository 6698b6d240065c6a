package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkoutCategory string

const (
	CategoryStrength    WorkoutCategory = "strength"
	CategoryCardio      WorkoutCategory = "cardio"
	CategoryFlexibility WorkoutCategory = "flexibility"
	CategoryMixed       WorkoutCategory = "mixed"
)

func (c WorkoutCategory) Valid() bool {
	switch c {
	case CategoryStrength, CategoryCardio, CategoryFlexibility, CategoryMixed:
		return true
	}
	return false
}

// WorkoutSet is one exercise prescription inside a workout. Sets are embedded
// in the workout document and replaced as a whole on update.
type WorkoutSet struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Reps       int                `bson:"reps" json:"reps"`
	Weight     float64            `bson:"weight" json:"weight"`
	RestTime   int                `bson:"restTime" json:"restTime"` // seconds
	Completed  bool               `bson:"completed" json:"completed"`
}

// Workout represents a single training session template.
type Workout struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Description       string             `bson:"description" json:"description"`
	EstimatedDuration int                `bson:"estimatedDuration" json:"estimatedDuration"` // minutes
	Difficulty        Difficulty         `bson:"difficulty" json:"difficulty"`
	Category          WorkoutCategory    `bson:"category" json:"category"`
	Sets              []WorkoutSet       `bson:"sets" json:"sets"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
