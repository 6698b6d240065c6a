package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressSnapshot is a point-in-time body metrics record. Several snapshots
// may share the same date.
type ProgressSnapshot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	Date         time.Time          `bson:"date" json:"date"`
	Weight       float64            `bson:"weight" json:"weight"`
	BodyFat      *float64           `bson:"bodyFat,omitempty" json:"bodyFat,omitempty"`
	MuscleMass   *float64           `bson:"muscleMass,omitempty" json:"muscleMass,omitempty"`
	Measurements map[string]float64 `bson:"measurements" json:"measurements"`
	Photos       []string           `bson:"photos,omitempty" json:"photos,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
