package mongo

import (
	"context"
	"errors"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const routineProgressCollectionName = "routine_progress"

type mongoRoutineProgressRepository struct {
	collection *mongo.Collection
}

func NewMongoRoutineProgressRepository(db *mongo.Database) repository.RoutineProgressRepository {
	return &mongoRoutineProgressRepository{
		collection: db.Collection(routineProgressCollectionName),
	}
}

// Create appends a completion event. CompletedAt is set by the caller.
func (r *mongoRoutineProgressRepository) Create(ctx context.Context, event *domain.RoutineProgress) (primitive.ObjectID, error) {
	if event.ClientRoutineID == primitive.NilObjectID || event.WorkoutID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("routine progress requires clientRoutineId and workoutId")
	}
	event.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return primitive.NilObjectID, err
	}
	return event.ID, nil
}

func (r *mongoRoutineProgressRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.RoutineProgress, error) {
	var event domain.RoutineProgress
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *mongoRoutineProgressRepository) List(ctx context.Context, f repository.RoutineProgressFilter) ([]domain.RoutineProgress, error) {
	filter := bson.M{}
	if f.ClientRoutineID != nil {
		filter["clientRoutineId"] = *f.ClientRoutineID
	}
	if f.ClientID != nil {
		filter["clientId"] = *f.ClientID
	}
	if f.WorkoutID != nil {
		filter["workoutId"] = *f.WorkoutID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.RoutineProgress](ctx, cursor)
}

func (r *mongoRoutineProgressRepository) Update(ctx context.Context, event *domain.RoutineProgress) error {
	set := bson.M{"notes": event.Notes}
	update := bson.M{"$set": set}
	if event.Rating != nil {
		set["rating"] = *event.Rating
	} else {
		update["$unset"] = bson.M{"rating": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": event.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRoutineProgressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRoutineProgressRepository) DeleteByClientRoutineID(ctx context.Context, clientRoutineID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"clientRoutineId": clientRoutineID})
	return err
}

func (r *mongoRoutineProgressRepository) DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"clientId": clientID})
	return err
}

func EnsureRoutineProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "clientRoutineId", Value: 1}, {Key: "completedAt", Value: -1}}},
		{Keys: bson.D{{Key: "clientId", Value: 1}}},
		{Keys: bson.D{{Key: "workoutId", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
