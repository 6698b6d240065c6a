package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressCollectionName = "progress_metrics"

// mongoProgressRepository stores body metric snapshots. Rows are only
// rewritten by an explicit correction.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

func (r *mongoProgressRepository) Create(ctx context.Context, snapshot *domain.ProgressSnapshot) (primitive.ObjectID, error) {
	if snapshot.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress snapshot requires clientId")
	}
	snapshot.ID = primitive.NewObjectID()
	snapshot.CreatedAt = time.Now().UTC()
	if snapshot.Measurements == nil {
		snapshot.Measurements = map[string]float64{}
	}

	if _, err := r.collection.InsertOne(ctx, snapshot); err != nil {
		return primitive.NilObjectID, err
	}
	return snapshot.ID, nil
}

func (r *mongoProgressRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressSnapshot, error) {
	var snapshot domain.ProgressSnapshot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *mongoProgressRepository) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressSnapshot, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, findOptions)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ProgressSnapshot](ctx, cursor)
}

func (r *mongoProgressRepository) Update(ctx context.Context, snapshot *domain.ProgressSnapshot) error {
	if snapshot.Measurements == nil {
		snapshot.Measurements = map[string]float64{}
	}
	set := bson.M{
		"date":         snapshot.Date,
		"weight":       snapshot.Weight,
		"measurements": snapshot.Measurements,
	}
	unset := bson.M{}
	if snapshot.BodyFat != nil {
		set["bodyFat"] = *snapshot.BodyFat
	} else {
		unset["bodyFat"] = ""
	}
	if snapshot.MuscleMass != nil {
		set["muscleMass"] = *snapshot.MuscleMass
	} else {
		unset["muscleMass"] = ""
	}
	if len(snapshot.Photos) > 0 {
		set["photos"] = snapshot.Photos
	} else {
		unset["photos"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": snapshot.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProgressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProgressRepository) DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"clientId": clientID})
	return err
}

func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		// Not unique: several snapshots per day are allowed.
		{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "date", Value: -1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
