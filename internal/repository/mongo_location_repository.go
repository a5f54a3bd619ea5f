package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jengzang/car-location-go/internal/models"
)

const (
	locationCollection = "location_data"
	countersCollection = "counters"
	mongoTimeout       = 5 * time.Second
)

// MongoLocationStore stores records in MongoDB. Integer ids come from a
// counters document so records keep the same shape as the SQLite table.
type MongoLocationStore struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoLocationStore creates a store over db
func NewMongoLocationStore(db *mongo.Database) *MongoLocationStore {
	return &MongoLocationStore{
		collection: db.Collection(locationCollection),
		counters:   db.Collection(countersCollection),
	}
}

// EnsureIndexes creates the history index; call once at startup
func (r *MongoLocationStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "carModel", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create location indexes: %w", err)
	}
	return nil
}

func (r *MongoLocationStore) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": locationCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate location id: %w", err)
	}
	return counter.Seq, nil
}

// Append inserts a record and sets its storage-assigned ID
func (r *MongoLocationStore) Append(ctx context.Context, record *models.LocationRecord) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return 0, err
	}

	doc := *record
	doc.ID = id
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to insert location record: %w", err)
	}

	record.ID = id
	return id, nil
}

func mongoFilter(filter models.HistoryFilter) bson.M {
	query := bson.M{}

	timeRange := bson.M{}
	if filter.StartTime > 0 {
		timeRange["$gte"] = filter.StartTime
	}
	if filter.EndTime > 0 {
		timeRange["$lte"] = filter.EndTime
	}
	if len(timeRange) > 0 {
		query["timestamp"] = timeRange
	}
	if filter.CarModel != "" {
		query["carModel"] = filter.CarModel
	}
	if filter.AlgorithmID != "" {
		query["algorithmId"] = filter.AlgorithmID
	}
	return query
}

// History retrieves one page of records, newest first.
// A zero PageSize returns every matching record.
func (r *MongoLocationStore) History(ctx context.Context, filter models.HistoryFilter) ([]models.LocationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}})
	if filter.PageSize > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.PageSize))
	}

	cursor, err := r.collection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query location history: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.LocationRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode location history: %w", err)
	}
	return records, nil
}

// Count returns the number of records matching the filter, ignoring pagination
func (r *MongoLocationStore) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count location records: %w", err)
	}
	return total, nil
}

// Latest returns the newest record, or nil when the collection is empty
func (r *MongoLocationStore) Latest(ctx context.Context) (*models.LocationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}})

	var rec models.LocationRecord
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest location record: %w", err)
	}
	return &rec, nil
}

// ConnectMongo connects to uri and returns the named database
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		return nil, errors.New("MongoDB URI not provided")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
