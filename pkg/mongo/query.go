package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Query accumulates filter, sort, and limit clauses for one collection
// and executes them in a single call. Chained setters mutate and return
// the same Query, so each value is single-use.
type Query struct {
	collection *mongo.Collection
	filter     bson.M
	sort       bson.D
	limit      int64
}

// NewQuery starts a query against the named collection.
func (c *Client) NewQuery(collectionName string) *Query {
	return &Query{
		collection: c.Collection(collectionName),
		filter:     bson.M{},
	}
}

// Eq constrains field to an exact value.
func (q *Query) Eq(field string, value interface{}) *Query {
	q.filter[field] = value
	return q
}

// Sort orders results by field. Multiple calls compose left to right.
func (q *Query) Sort(field string, ascending bool) *Query {
	dir := 1
	if !ascending {
		dir = -1
	}
	q.sort = append(q.sort, bson.E{Key: field, Value: dir})
	return q
}

// Limit caps the number of documents Find returns.
func (q *Query) Limit(n int64) *Query {
	q.limit = n
	return q
}

// Find returns every matching document as a generic map.
func (q *Query) Find(ctx context.Context) ([]map[string]interface{}, error) {
	opts := options.Find()
	if q.limit > 0 {
		opts.SetLimit(q.limit)
	}
	if len(q.sort) > 0 {
		opts.SetSort(q.sort)
	}

	cursor, err := q.collection.Find(ctx, q.filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []map[string]interface{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Insert adds a document and returns its generated ID.
func (q *Query) Insert(ctx context.Context, document interface{}) (interface{}, error) {
	res, err := q.collection.InsertOne(ctx, document)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

// UpdateOnePipeline applies an aggregation pipeline update to the
// first match, for updates that derive new fields from stored ones in
// a single round trip.
func (q *Query) UpdateOnePipeline(ctx context.Context, pipeline bson.A) (*mongo.UpdateResult, error) {
	return q.collection.UpdateOne(ctx, q.filter, pipeline)
}
