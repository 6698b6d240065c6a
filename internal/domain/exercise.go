// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty is shared by exercises and workouts.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// Exercise represents a single exercise definition in the library.
type Exercise struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	MuscleGroups []string           `bson:"muscleGroups" json:"muscleGroups"`
	Equipment    []string           `bson:"equipment" json:"equipment"`
	Difficulty   Difficulty         `bson:"difficulty" json:"difficulty"`
	Instructions []string           `bson:"instructions" json:"instructions"`

	VideoURL string `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	ImageURL string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	// Object keys for media we uploaded ourselves; empty when the URL is external.
	VideoKey string `bson:"videoKey,omitempty" json:"-"`
	ImageKey string `bson:"imageKey,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
