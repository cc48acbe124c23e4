package identity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a store for the given collection. Call EnsureIndexes
// once at startup before serving traffic.
func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// EnsureIndexes creates the unique email index (the write-time guard for the
// cross-identity email invariant) and the text index used by Search.
func (r *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "emails", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "displayName", Value: "text"}, {Key: "emails", Value: "text"}},
		},
	})
	return err
}

func (r *MongoStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	return r.findOne(ctx, bson.M{"emails": email})
}

func (r *MongoStore) FindByProvider(ctx context.Context, provider, providerUserID string) (*Identity, error) {
	return r.findOne(ctx, bson.M{"oauthLinks." + provider + ".id": providerUserID})
}

func (r *MongoStore) findOne(ctx context.Context, filter bson.M) (*Identity, error) {
	var ident Identity
	if err := r.col.FindOne(ctx, filter).Decode(&ident); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ident, nil
}

func (r *MongoStore) Insert(ctx context.Context, ident *Identity) error {
	if _, err := r.col.InsertOne(ctx, ident); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MongoStore) Update(ctx context.Context, ident *Identity) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": ident.ID}, ident)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoSuchUser
	}
	return nil
}

func (r *MongoStore) List(ctx context.Context) ([]*Identity, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func (r *MongoStore) Search(ctx context.Context, query string) ([]*Identity, error) {
	cur, err := r.col.Find(ctx, bson.M{"$text": bson.M{"$search": query}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*Identity, error) {
	out := []*Identity{}
	for cur.Next(ctx) {
		var ident Identity
		if err := cur.Decode(&ident); err != nil {
			return nil, err
		}
		out = append(out, &ident)
	}
	return out, cur.Err()
}
