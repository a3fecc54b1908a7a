package knowledge

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clouderp-code/email-processor/core/domain"
)

// MongoAdapter searches knowledge-base articles via MongoDB text search.
type MongoAdapter struct {
	collection *mongo.Collection
}

func NewMongoAdapter(client *mongo.Client, database, collection string) *MongoAdapter {
	return &MongoAdapter{
		collection: client.Database(database).Collection(collection),
	}
}

type articleDoc struct {
	ID      string  `bson:"_id"`
	Title   string  `bson:"title"`
	Content string  `bson:"content"`
	Score   float64 `bson:"score"`
}

// Search runs a text query, most relevant first. Articles scoring below
// minRelevance are dropped.
func (a *MongoAdapter) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]domain.Article, error) {
	opts := options.Find().
		SetProjection(bson.M{
			"title":   1,
			"content": 1,
			"score":   bson.M{"$meta": "textScore"},
		}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(limit))

	cursor, err := a.collection.Find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	if err != nil {
		return nil, fmt.Errorf("knowledge base query: %w", err)
	}
	defer cursor.Close(ctx)

	var articles []domain.Article
	for cursor.Next(ctx) {
		var doc articleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		if doc.Score < minRelevance {
			continue
		}
		articles = append(articles, domain.Article{
			ID:        doc.ID,
			Title:     doc.Title,
			Content:   doc.Content,
			Relevance: doc.Score,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("knowledge base cursor: %w", err)
	}
	return articles, nil
}
