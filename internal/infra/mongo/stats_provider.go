package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collections names the community collections counters are read from.
type Collections struct {
	Topics          string
	Replies         string
	ResourceAccess  string
	UserField       string
	BestAnswerField string
	AccessTypeField string
}

// DefaultCollections matches the forum and resource services' schema.
func DefaultCollections() Collections {
	return Collections{
		Topics:          "forumtopics",
		Replies:         "forumreplies",
		ResourceAccess:  "resourceaccesses",
		UserField:       "userId",
		BestAnswerField: "isBestAnswer",
		AccessTypeField: "accessType",
	}
}

// StatsProvider counts community activity stored by other services.
type StatsProvider struct {
	db      *mongo.Database
	cols    Collections
	timeout time.Duration
}

// Connect opens a client for uri and pings it.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewStatsProvider(db *mongo.Database, cols Collections, timeout time.Duration) *StatsProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StatsProvider{db: db, cols: cols, timeout: timeout}
}

func (p *StatsProvider) ForumTopicCount(ctx context.Context, userID string) (int, error) {
	return p.count(ctx, p.cols.Topics, p.userFilter(userID))
}

func (p *StatsProvider) ForumReplyCount(ctx context.Context, userID string) (int, error) {
	return p.count(ctx, p.cols.Replies, p.userFilter(userID))
}

func (p *StatsProvider) BestAnswerCount(ctx context.Context, userID string) (int, error) {
	filter := p.userFilter(userID)
	filter = append(filter, bson.E{Key: p.cols.BestAnswerField, Value: true})
	return p.count(ctx, p.cols.Replies, filter)
}

func (p *StatsProvider) ResourceAccessCount(ctx context.Context, userID, accessType string) (int, error) {
	return p.count(ctx, p.cols.ResourceAccess, p.accessFilter(userID, accessType))
}

func (p *StatsProvider) accessFilter(userID, accessType string) bson.D {
	filter := p.userFilter(userID)
	if accessType != "" {
		filter = append(filter, bson.E{Key: p.cols.AccessTypeField, Value: accessType})
	}
	return filter
}

func (p *StatsProvider) userFilter(userID string) bson.D {
	return bson.D{{Key: p.cols.UserField, Value: userID}}
}

func (p *StatsProvider) count(ctx context.Context, collection string, filter bson.D) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	n, err := p.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return int(n), nil
}
