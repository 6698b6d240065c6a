package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Transactions require the deployment to be a replica set or sharded cluster.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// mongoTransactor implements repository.Transactor with client sessions.
type mongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

// WithinTransaction runs fn inside a multi-document transaction. The session
// context handed to fn carries the transaction to every collection call made
// with it. The driver retries fn on transient errors such as write conflicts
// between concurrent transactions.
func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes of every collection. The unique and
// partial unique indexes carry invariants, so a failure here must stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []func(context.Context, *mongo.Collection) error{
		EnsureUserIndexes,
		EnsureClientIndexes,
		EnsureExerciseIndexes,
		EnsureWorkoutIndexes,
		EnsureRoutineIndexes,
		EnsureClientRoutineIndexes,
		EnsureRoutineProgressIndexes,
		EnsureProgressIndexes,
		EnsureGoalIndexes,
	}
	names := []string{
		userCollectionName,
		clientCollectionName,
		exerciseCollectionName,
		workoutCollectionName,
		routineCollectionName,
		clientRoutineCollectionName,
		routineProgressCollectionName,
		progressCollectionName,
		goalCollectionName,
	}
	for i, ensure := range steps {
		if err := ensure(ctx, db.Collection(names[i])); err != nil {
			return err
		}
	}
	return nil
}

// decodeAll drains a cursor into a non-nil slice.
func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// uniqueIndexName is the name given to the unique index over field.
func uniqueIndexName(field string) string {
	return field + "_unique"
}

// mapWriteError translates driver errors into repository errors. For
// duplicate key errors the offending field is named when it is one of
// fields, whose unique indexes are named with uniqueIndexName.
func mapWriteError(err error, fields ...string) error {
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for _, field := range fields {
		if strings.Contains(msg, uniqueIndexName(field)) {
			return &repository.DuplicateKeyError{Field: field}
		}
	}
	return repository.ErrDuplicate
}
