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

const routineCollectionName = "routines"

type mongoRoutineRepository struct {
	collection *mongo.Collection
}

func NewMongoRoutineRepository(db *mongo.Database) repository.RoutineRepository {
	return &mongoRoutineRepository{
		collection: db.Collection(routineCollectionName),
	}
}

func (r *mongoRoutineRepository) Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	if routine.Name == "" {
		return primitive.NilObjectID, errors.New("routine name is required")
	}
	routine.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	if routine.WorkoutIDs == nil {
		routine.WorkoutIDs = []primitive.ObjectID{}
	}
	if routine.ScheduledDays == nil {
		routine.ScheduledDays = []domain.Weekday{}
	}

	if _, err := r.collection.InsertOne(ctx, routine); err != nil {
		return primitive.NilObjectID, err
	}
	return routine.ID, nil
}

func (r *mongoRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	var routine domain.Routine
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&routine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &routine, nil
}

func (r *mongoRoutineRepository) List(ctx context.Context, f repository.RoutineFilter) ([]domain.Routine, error) {
	filter := bson.M{}
	if f.Frequency != "" {
		filter["frequency"] = f.Frequency
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Routine](ctx, cursor)
}

func (r *mongoRoutineRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Routine, error) {
	if len(ids) == 0 {
		return []domain.Routine{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Routine](ctx, cursor)
}

func (r *mongoRoutineRepository) Update(ctx context.Context, routine *domain.Routine) error {
	if routine.ID == primitive.NilObjectID {
		return errors.New("routine ID is required for update")
	}
	routine.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"name":          routine.Name,
			"description":   routine.Description,
			"workoutIds":    routine.WorkoutIDs,
			"frequency":     routine.Frequency,
			"daysPerWeek":   routine.DaysPerWeek,
			"duration":      routine.Duration,
			"scheduledDays": routine.ScheduledDays,
			"updatedAt":     routine.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": routine.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoRoutineRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type routineStatsFacets struct {
	Total []struct {
		N int `bson:"n"`
	} `bson:"total"`
	ByFrequency []struct {
		Frequency domain.Frequency `bson:"_id"`
		Count     int              `bson:"count"`
	} `bson:"byFrequency"`
	Ranges []struct {
		AvgDuration float64 `bson:"avgDuration"`
		MinDuration int     `bson:"minDuration"`
		MaxDuration int     `bson:"maxDuration"`
		AvgDays     float64 `bson:"avgDays"`
		MinDays     int     `bson:"minDays"`
		MaxDays     int     `bson:"maxDays"`
	} `bson:"ranges"`
	ByWorkoutCount []struct {
		Workouts int `bson:"_id"`
		Routines int `bson:"routines"`
	} `bson:"byWorkoutCount"`
	Popular []struct {
		ID          primitive.ObjectID `bson:"_id"`
		Name        string             `bson:"name"`
		Frequency   domain.Frequency   `bson:"frequency"`
		Duration    int                `bson:"duration"`
		ClientCount int                `bson:"clientCount"`
	} `bson:"popular"`
}

// routineStatsPipeline computes every statistic in one $facet stage.
func routineStatsPipeline(topN int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "n"}}}},
			{Key: "byFrequency", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$frequency"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
			}},
			{Key: "ranges", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "avgDuration", Value: bson.D{{Key: "$avg", Value: "$duration"}}},
					{Key: "minDuration", Value: bson.D{{Key: "$min", Value: "$duration"}}},
					{Key: "maxDuration", Value: bson.D{{Key: "$max", Value: "$duration"}}},
					{Key: "avgDays", Value: bson.D{{Key: "$avg", Value: "$daysPerWeek"}}},
					{Key: "minDays", Value: bson.D{{Key: "$min", Value: "$daysPerWeek"}}},
					{Key: "maxDays", Value: bson.D{{Key: "$max", Value: "$daysPerWeek"}}},
				}}},
			}},
			{Key: "byWorkoutCount", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$workoutIds", bson.A{}}}}}}},
					{Key: "routines", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
			}},
			{Key: "popular", Value: bson.A{
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: clientRoutineCollectionName},
					{Key: "localField", Value: "_id"},
					{Key: "foreignField", Value: "routineId"},
					{Key: "as", Value: "assignments"},
				}}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "name", Value: 1},
					{Key: "frequency", Value: 1},
					{Key: "duration", Value: 1},
					// distinct clients, a client reassigned twice counts once
					{Key: "clientCount", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$setUnion", Value: bson.A{"$assignments.clientId", bson.A{}}}}}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "clientCount", Value: -1}, {Key: "name", Value: 1}}}},
				bson.D{{Key: "$limit", Value: topN}},
			}},
		}}},
	}
}

func (r *mongoRoutineRepository) Statistics(ctx context.Context, topN int) (*repository.RoutineStats, error) {
	if topN < 1 {
		topN = 1
	}
	cursor, err := r.collection.Aggregate(ctx, routineStatsPipeline(topN))
	if err != nil {
		return nil, err
	}
	results, err := decodeAll[routineStatsFacets](ctx, cursor)
	if err != nil {
		return nil, err
	}

	stats := &repository.RoutineStats{
		ByFrequency:    []repository.FrequencyCount{},
		ByWorkoutCount: []repository.WorkoutCountBucket{},
		Popular:        []repository.PopularRoutine{},
	}
	if len(results) == 0 {
		return stats, nil
	}
	facets := results[0]
	if len(facets.Total) > 0 {
		stats.Total = facets.Total[0].N
	}
	for _, f := range facets.ByFrequency {
		stats.ByFrequency = append(stats.ByFrequency, repository.FrequencyCount{Frequency: f.Frequency, Count: f.Count})
	}
	if len(facets.Ranges) > 0 {
		rg := facets.Ranges[0]
		stats.Duration = repository.ValueRange{Avg: rg.AvgDuration, Min: rg.MinDuration, Max: rg.MaxDuration}
		stats.DaysPerWeek = repository.ValueRange{Avg: rg.AvgDays, Min: rg.MinDays, Max: rg.MaxDays}
	}
	for _, b := range facets.ByWorkoutCount {
		stats.ByWorkoutCount = append(stats.ByWorkoutCount, repository.WorkoutCountBucket{Workouts: b.Workouts, Routines: b.Routines})
	}
	for _, p := range facets.Popular {
		stats.Popular = append(stats.Popular, repository.PopularRoutine{
			ID:          p.ID,
			Name:        p.Name,
			Frequency:   p.Frequency,
			Duration:    p.Duration,
			ClientCount: p.ClientCount,
		})
	}
	return stats, nil
}

func EnsureRoutineIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "frequency", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
