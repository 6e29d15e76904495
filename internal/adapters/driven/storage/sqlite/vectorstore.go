package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore. Vectors are stored as blobs
// and scored in process, so search is a scan of the collection.
type vectorStore struct {
	store     *Store
	batchSize int
}

var _ driven.VectorStore = (*vectorStore)(nil)

// CollectionExists reports whether the collection exists.
func (v *vectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := v.collection(ctx, v.store.db, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateCollection creates a collection. Existing collections are left unchanged.
func (v *vectorStore) CreateCollection(ctx context.Context, name string, dimension int, distance domain.DistanceMetric) error {
	if name == "" || dimension <= 0 {
		return domain.ValidationErrorf("collection needs a name and positive dimension")
	}
	if !distance.IsValid() {
		return domain.ValidationErrorf("unknown distance metric %q", distance)
	}
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, distance, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, dimension, string(distance), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// DeleteCollection removes a collection; its points cascade.
func (v *vectorStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := v.store.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// ListCollections returns collection names in lexical order.
func (v *vectorStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := v.store.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CollectionInfo returns collection metadata with its current point count.
func (v *vectorStore) CollectionInfo(ctx context.Context, name string) (*domain.Collection, error) {
	info, err := v.collection(ctx, v.store.db, name)
	if err != nil {
		return nil, err
	}
	row := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points WHERE collection = ?", name)
	if err := row.Scan(&info.PointCount); err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}
	return info, nil
}

// Upsert validates every vector, then writes points in batches.
func (v *vectorStore) Upsert(ctx context.Context, name string, points []domain.Point) error {
	info, err := v.collection(ctx, v.store.db, name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := info.CheckDimension(p.Vector); err != nil {
			return err
		}
	}

	for start := 0; start < len(points); start += v.batchSize {
		batch := points[start:min(start+v.batchSize, len(points))]
		err := v.store.withTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO points (collection, id, document_id, vector, payload)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(collection, id) DO UPDATE SET
					document_id = excluded.document_id,
					vector = excluded.vector,
					payload = excluded.payload
			`)
			if err != nil {
				return fmt.Errorf("preparing upsert: %w", err)
			}
			defer stmt.Close()

			for _, p := range batch {
				payload, err := json.Marshal(p.Payload.Fields())
				if err != nil {
					return fmt.Errorf("marshalling payload for %s: %w", p.ID, err)
				}
				if _, err := stmt.ExecContext(ctx, name, p.ID, p.Payload.DocumentID,
					float32SliceToBytes(p.Vector), string(payload)); err != nil {
					return fmt.Errorf("upserting point %s: %w", p.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Search scores every candidate point against vector.
func (v *vectorStore) Search(
	ctx context.Context, name string, vector []float32, params domain.SearchParams,
) ([]domain.Hit, error) {
	info, err := v.collection(ctx, v.store.db, name)
	if err != nil {
		return nil, err
	}
	if err := info.CheckDimension(vector); err != nil {
		return nil, err
	}

	var hits []domain.Hit
	err = v.scan(ctx, name, params.Filter, true, func(id string, vec []float32, fields map[string]any) {
		score := domain.Similarity(info.Distance, vector, vec)
		if score < params.ScoreThreshold {
			return
		}
		hits = append(hits, domain.Hit{ID: id, Score: score, Payload: domain.PayloadFromFields(fields)})
	})
	if err != nil {
		return nil, err
	}

	domain.SortHits(hits)
	if params.Limit > 0 && len(hits) > params.Limit {
		hits = hits[:params.Limit]
	}
	return hits, nil
}

// Retrieve fetches points by ID, skipping unknown IDs.
func (v *vectorStore) Retrieve(ctx context.Context, name string, ids []string) ([]domain.Hit, error) {
	if _, err := v.collection(ctx, v.store.db, name); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Hit{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, name)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id, payload FROM points WHERE collection = ? AND id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("retrieving points: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Payload, len(ids))
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		fields, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		byID[id] = domain.PayloadFromFields(fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}

	// Preserve request order.
	hits := make([]domain.Hit, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			hits = append(hits, domain.Hit{ID: id, Payload: p})
			delete(byID, id)
		}
	}
	return hits, nil
}

// Scroll returns matching points ordered by ID.
func (v *vectorStore) Scroll(ctx context.Context, name string, filter domain.Filter, limit int) ([]domain.Hit, error) {
	if _, err := v.collection(ctx, v.store.db, name); err != nil {
		return nil, err
	}
	hits := []domain.Hit{}
	err := v.scan(ctx, name, filter, false, func(id string, _ []float32, fields map[string]any) {
		if limit > 0 && len(hits) >= limit {
			return
		}
		hits = append(hits, domain.Hit{ID: id, Payload: domain.PayloadFromFields(fields)})
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// DeletePoints removes points by ID.
func (v *vectorStore) DeletePoints(ctx context.Context, name string, ids []string) error {
	if _, err := v.collection(ctx, v.store.db, name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, name)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := v.store.db.ExecContext(ctx,
		"DELETE FROM points WHERE collection = ? AND id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// DeleteByFilter removes every matching point.
func (v *vectorStore) DeleteByFilter(ctx context.Context, name string, filter domain.Filter) (int, error) {
	hits, err := v.Scroll(ctx, name, filter, 0)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	if err := v.DeletePoints(ctx, name, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Ping checks the database answers.
func (v *vectorStore) Ping(ctx context.Context) error {
	return v.store.db.PingContext(ctx)
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorStore) Close() error {
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (v *vectorStore) collection(ctx context.Context, q querier, name string) (*domain.Collection, error) {
	info := domain.Collection{Name: name, Status: domain.CollectionGreen}
	var distance string
	err := q.QueryRowContext(ctx, "SELECT dimension, distance FROM collections WHERE name = ?", name).
		Scan(&info.Dimension, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	info.Distance = domain.DistanceMetric(distance)
	return &info, nil
}

// scan visits points matching filter in ID order. A string document_id
// condition is pushed into SQL; the rest of the filter runs in process.
func (v *vectorStore) scan(
	ctx context.Context, name string, filter domain.Filter, withVectors bool,
	visit func(id string, vec []float32, fields map[string]any),
) error {
	cols := "id, payload"
	if withVectors {
		cols += ", vector"
	}
	query := "SELECT " + cols + " FROM points WHERE collection = ?"
	args := []any{name}
	if docID, ok := filter[domain.PayloadDocumentID].(string); ok {
		query += " AND document_id = ?"
		args = append(args, docID)
	}
	query += " ORDER BY id"

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("scanning points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, payload string
			blob        []byte
		)
		dest := []any{&id, &payload}
		if withVectors {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scanning point: %w", err)
		}
		fields, err := decodePayload(payload)
		if err != nil {
			return err
		}
		if len(filter) > 0 && !filter.Matches(fields) {
			continue
		}
		var vec []float32
		if withVectors {
			vec = bytesToFloat32Slice(blob)
		}
		visit(id, vec, fields)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating points: %w", err)
	}
	return nil
}

func decodePayload(raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return fields, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
