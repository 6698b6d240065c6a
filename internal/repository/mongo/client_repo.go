package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const clientCollectionName = "clients"

type mongoClientRepository struct {
	collection *mongo.Collection
}

func NewMongoClientRepository(db *mongo.Database) repository.ClientRepository {
	return &mongoClientRepository{
		collection: db.Collection(clientCollectionName),
	}
}

// Create inserts a client. Email and phone are unique.
func (r *mongoClientRepository) Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error) {
	client.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	if client.Goals == nil {
		client.Goals = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, client); err != nil {
		return primitive.NilObjectID, mapWriteError(err, "email", "phone")
	}
	return client.ID, nil
}

func (r *mongoClientRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoClientRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *mongoClientRepository) findOne(ctx context.Context, filter bson.M) (*domain.Client, error) {
	var client domain.Client
	err := r.collection.FindOne(ctx, filter).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// List returns clients matching filter sorted by name. Filters on active
// assignments run as an aggregation joined with the assignments collection.
func (r *mongoClientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	if filter.HasRoutines != nil || filter.RoutineCount != nil {
		cursor, err := r.collection.Aggregate(ctx, clientRoutinePipeline(filter))
		if err != nil {
			return nil, err
		}
		return decodeAll[domain.Client](ctx, cursor)
	}

	cursor, err := r.collection.Find(ctx, clientQuery(filter), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Client](ctx, cursor)
}

const activeRoutineCountField = "activeRoutineCount"

func clientRoutinePipeline(f repository.ClientFilter) mongo.Pipeline {
	var counts bson.A
	if f.HasRoutines != nil {
		if *f.HasRoutines {
			counts = append(counts, bson.M{activeRoutineCountField: bson.M{"$gt": 0}})
		} else {
			counts = append(counts, bson.M{activeRoutineCountField: 0})
		}
	}
	if f.RoutineCount != nil {
		counts = append(counts, bson.M{activeRoutineCountField: *f.RoutineCount})
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: clientQuery(f)}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: clientRoutineCollectionName},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "clientId"},
			{Key: "as", Value: "assignments"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: activeRoutineCountField, Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: "$assignments"},
				{Key: "as", Value: "a"},
				{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$a.isActive", true}}}},
			}}}}}},
		}}},
		{{Key: "$match", Value: bson.M{"$and": counts}}},
		{{Key: "$project", Value: bson.D{{Key: "assignments", Value: 0}, {Key: activeRoutineCountField, Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
	}
}

var noSubscription = bson.A{domain.SubscriptionNone, "", nil}

func clientQuery(f repository.ClientFilter) bson.M {
	var and bson.A

	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"phone": re},
			bson.M{"emergencyContact": re},
		}})
	}
	if len(f.SubscriptionTypes) > 0 {
		and = append(and, bson.M{"subscriptionType": bson.M{"$in": f.SubscriptionTypes}})
	}

	today := domain.TruncateDay(f.Today)
	switch f.SubscriptionStatus {
	case domain.SubscriptionActive:
		and = append(and,
			bson.M{"subscriptionType": bson.M{"$nin": noSubscription}},
			bson.M{"$or": bson.A{
				bson.M{"subscriptionEnd": nil},
				bson.M{"subscriptionEnd": bson.M{"$gt": today}},
			}},
		)
	case domain.SubscriptionExpired:
		and = append(and,
			bson.M{"subscriptionType": bson.M{"$nin": noSubscription}},
			bson.M{"subscriptionEnd": bson.M{"$lte": today}},
		)
	case domain.SubscriptionAbsent:
		and = append(and, bson.M{"subscriptionType": bson.M{"$in": noSubscription}})
	}

	if f.BornOnOrBefore != nil {
		and = append(and, bson.M{"birthDate": bson.M{"$lte": *f.BornOnOrBefore}})
	}
	if f.BornAfter != nil {
		and = append(and, bson.M{"birthDate": bson.M{"$gt": *f.BornAfter}})
	}
	if f.HasGoals != nil {
		if *f.HasGoals {
			and = append(and, bson.M{"goals.0": bson.M{"$exists": true}})
		} else {
			and = append(and, bson.M{"goals.0": bson.M{"$exists": false}})
		}
	}
	if f.HasIdentity != nil {
		if *f.HasIdentity {
			and = append(and, bson.M{"userId": bson.M{"$ne": nil}})
		} else {
			and = append(and, bson.M{"userId": nil})
		}
	}

	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

// Update replaces the mutable profile fields. The identity link is changed
// only through LinkUser.
func (r *mongoClientRepository) Update(ctx context.Context, client *domain.Client) error {
	if client.ID == primitive.NilObjectID {
		return errors.New("client ID is required for update")
	}
	client.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":              client.Name,
		"email":             client.Email,
		"phone":             client.Phone,
		"birthDate":         client.BirthDate,
		"weight":            client.Weight,
		"height":            client.Height,
		"goals":             client.Goals,
		"joinDate":          client.JoinDate,
		"subscriptionType":  client.SubscriptionType,
		"subscriptionStart": client.SubscriptionStart,
		"subscriptionEnd":   client.SubscriptionEnd,
		"profileImage":      client.ProfileImage,
		"profileImageKey":   client.ProfileImageKey,
		"notes":             client.Notes,
		"emergencyContact":  client.EmergencyContact,
		"medicalConditions": client.MedicalConditions,
		"updatedAt":         client.UpdatedAt,
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": client.ID}, bson.M{"$set": set})
	if err != nil {
		return mapWriteError(err, "email", "phone")
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoClientRepository) LinkUser(ctx context.Context, clientID, userID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"userId": userID, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": clientID}, update)
	if err != nil {
		return mapWriteError(err, "userId")
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoClientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureClientIndexes creates necessary indexes for the clients collection.
func EnsureClientIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(uniqueIndexName("email")),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(uniqueIndexName("phone")),
		},
		{
			// One client per identity; clients without identity are not indexed.
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(uniqueIndexName("userId")).
				SetPartialFilterExpression(bson.M{"userId": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "subscriptionType", Value: 1}, {Key: "subscriptionEnd", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
