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

const (
	clientRoutineCollectionName = "client_routines"
	activeAssignmentIndexName   = "active_client_routine_unique"
)

// mongoClientRoutineRepository implements repository.ClientRoutineRepository
type mongoClientRoutineRepository struct {
	collection *mongo.Collection
}

func NewMongoClientRoutineRepository(db *mongo.Database) repository.ClientRoutineRepository {
	return &mongoClientRoutineRepository{
		collection: db.Collection(clientRoutineCollectionName),
	}
}

// Create inserts a new assignment. A second active assignment for the same
// pair is rejected by the partial unique index and reported as ErrDuplicate.
func (r *mongoClientRoutineRepository) Create(ctx context.Context, assignment *domain.ClientRoutine) (primitive.ObjectID, error) {
	if assignment.ClientID == primitive.NilObjectID || assignment.RoutineID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires clientId and routineId")
	}
	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.AssignedDays == nil {
		assignment.AssignedDays = []domain.Weekday{}
	}

	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		return primitive.NilObjectID, mapWriteError(err)
	}
	return assignment.ID, nil
}

func (r *mongoClientRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindActive returns the active assignment of the pair, or ErrNotFound.
func (r *mongoClientRoutineRepository) FindActive(ctx context.Context, clientID, routineID primitive.ObjectID) (*domain.ClientRoutine, error) {
	return r.findOne(ctx, bson.M{"clientId": clientID, "routineId": routineID, "isActive": true})
}

func (r *mongoClientRoutineRepository) findOne(ctx context.Context, filter bson.M) (*domain.ClientRoutine, error) {
	var assignment domain.ClientRoutine
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *mongoClientRoutineRepository) List(ctx context.Context, f repository.ClientRoutineFilter) ([]domain.ClientRoutine, error) {
	filter := bson.M{}
	if f.ClientID != nil {
		filter["clientId"] = *f.ClientID
	}
	if f.RoutineID != nil {
		filter["routineId"] = *f.RoutineID
	}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ClientRoutine](ctx, cursor)
}

// Update writes the mutable fields of an assignment. Reactivating a row while
// another is active for the pair yields ErrDuplicate.
func (r *mongoClientRoutineRepository) Update(ctx context.Context, assignment *domain.ClientRoutine) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}
	assignment.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"startDate":    assignment.StartDate,
		"isActive":     assignment.IsActive,
		"assignedDays": assignment.AssignedDays,
		"updatedAt":    assignment.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if assignment.EndDate != nil {
		set["endDate"] = *assignment.EndDate
	} else {
		update["$unset"] = bson.M{"endDate": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": assignment.ID}, update)
	if err != nil {
		return mapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoClientRoutineRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoClientRoutineRepository) DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"clientId": clientID})
	return err
}

// EnsureClientRoutineIndexes creates the indexes of the assignments collection,
// including the partial unique index that allows a single active row per pair.
func EnsureClientRoutineIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "routineId", Value: 1}},
			Options: options.Index().
				SetName(activeAssignmentIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "startDate", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "routineId", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
