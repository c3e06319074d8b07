package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"diarygraph/backend/internal/diary"
	apperrors "diarygraph/backend/pkg/errors"
	"diarygraph/backend/pkg/logger"
)

// Repository reads and writes diary entries stored in Neo4j as
// (:User)-[:WROTE]->(:Entry)-[:MENTIONS]->(:Entity)
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new entry repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("neo4j"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// EnsureSchema creates the uniqueness constraints the queries rely on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
		"CREATE CONSTRAINT entry_id IF NOT EXISTS FOR (e:Entry) REQUIRE e.id IS UNIQUE",
		"CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (n:Entity) REQUIRE n.name IS UNIQUE",
		"CREATE INDEX entry_timestamp IF NOT EXISTS FOR (e:Entry) ON (e.timestamp)",
	}
	for _, stmt := range constraints {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", stmt, err)
		}
	}

	r.logger.Info("Schema ensured", zap.Int("statements", len(constraints)))
	return nil
}

// Entries returns every entry written by userID, oldest first
func (r *Repository) Entries(ctx context.Context, userID string) ([]diary.Entry, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:WROTE]->(e:Entry)
		OPTIONAL MATCH (e)-[:MENTIONS]->(ent:Entity)
		WITH e, collect(DISTINCT {name: ent.name, type: ent.type}) AS entities
		RETURN
			e.id AS id,
			e.timestamp AS timestamp,
			e.title AS title,
			e.content AS content,
			e.mood AS mood,
			e.sentiment_score AS sentiment_score,
			e.tags AS tags,
			e.country AS country,
			e.city AS city,
			entities
		ORDER BY e.timestamp
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return nil, apperrors.NewEntriesFetchFailed("neo4j", userID, err)
	}

	var entries []diary.Entry
	for result.Next(ctx) {
		entry := entryFromRecord(result.Record())
		entry.UserID = userID
		entries = append(entries, entry)
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewEntriesFetchFailed("neo4j", userID, err)
	}

	r.logger.Debug("Entries fetched",
		zap.String("user_id", userID),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// SaveEntries upserts entries for userID in one transaction. Entity
// mentions are replaced, not merged, so re-analysed entries stay accurate.
func (r *Repository) SaveEntries(ctx context.Context, userID string, entries []diary.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $userID})
		WITH u
		UNWIND $entries AS row
		MERGE (e:Entry {id: row.id})
		SET e.timestamp = datetime(row.timestamp),
		    e.title = row.title,
		    e.content = row.content,
		    e.mood = row.mood,
		    e.sentiment_score = row.sentiment_score,
		    e.tags = row.tags,
		    e.country = row.country,
		    e.city = row.city
		MERGE (u)-[:WROTE]->(e)
		WITH e, row
		OPTIONAL MATCH (e)-[old:MENTIONS]->(:Entity)
		DELETE old
		WITH DISTINCT e, row
		UNWIND row.entities AS ent
		MERGE (n:Entity {name: ent.name})
		SET n.type = ent.type
		MERGE (e)-[:MENTIONS]->(n)
	`

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{
			"userID":  userID,
			"entries": entryParams(entries),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}

	r.logger.Info("Entries saved",
		zap.String("user_id", userID),
		zap.Int("count", len(entries)),
	)
	return nil
}

// DeleteUserEntries removes every entry written by userID
func (r *Repository) DeleteUserEntries(ctx context.Context, userID string) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (:User {id: $userID})-[:WROTE]->(e:Entry)
		DETACH DELETE e
		RETURN count(e) AS deleted
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"userID": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return getIntFromRecord(record, "deleted"), nil
}

// entryParams flattens entries into driver-friendly maps
func entryParams(entries []diary.Entry) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		entities := make([]map[string]interface{}, 0, len(e.Entities))
		for _, ent := range e.Entities {
			if ent.Name == "" {
				continue
			}
			entities = append(entities, map[string]interface{}{
				"name": ent.Name,
				"type": ent.Type,
			})
		}

		tags := e.ManualTags
		if tags == nil {
			tags = []string{}
		}

		rows = append(rows, map[string]interface{}{
			"id":              e.ID,
			"timestamp":       e.Timestamp.UTC().Format(time.RFC3339),
			"title":           e.Title,
			"content":         e.Content,
			"mood":            e.Mood,
			"sentiment_score": e.SentimentScore,
			"tags":            tags,
			"country":         e.Country,
			"city":            e.City,
			"entities":        entities,
		})
	}
	return rows
}
