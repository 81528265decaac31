package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
)

// CreateCollection stores schema metadata, then runs FT.CREATE.
// Metadata is rolled back if the index cannot be created.
func (s *Store) CreateCollection(ctx context.Context, schema collection.Schema) (collection.Info, error) {
	args, err := indexFromSchema(s.indexName(schema.Name), s.docPrefix(schema.Name), schema).args()
	if err != nil {
		return collection.Info{}, &db.Error{Op: db.OpCreateCollection, Err: err}
	}

	meta := s.metaKey(schema.Name)
	exists, err := s.do(ctx, s.b().Exists().Key(meta).Build()).AsInt64()
	if err != nil {
		return collection.Info{}, opError(db.OpCreateCollection, err)
	}
	if exists > 0 {
		return collection.Info{}, &db.Error{
			Op: db.OpCreateCollection, Err: fmt.Errorf("%w: collection %s", db.ErrAlreadyExists, schema.Name),
		}
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return collection.Info{}, &db.Error{Op: db.OpCreateCollection, Err: err}
	}
	created := time.Now().Unix()
	hset := s.b().Hset().Key(meta).FieldValue().
		FieldValue("schema", string(raw)).
		FieldValue("created_at", strconv.FormatInt(created, 10)).
		Build()
	if err := s.do(ctx, hset).Error(); err != nil {
		return collection.Info{}, opError(db.OpCreateCollection, err)
	}

	if err := s.do(ctx, s.b().Arbitrary("FT.CREATE").Args(args...).Build()).Error(); err != nil {
		_ = s.do(ctx, s.b().Del().Key(meta).Build()).Error()
		if isRedisErr(err, "index already exists") {
			return collection.Info{}, &db.Error{Op: db.OpCreateCollection, Err: fmt.Errorf("%w: %v", db.ErrAlreadyExists, err)}
		}
		return collection.Info{}, opError(db.OpCreateCollection, err)
	}
	return collection.Info{Schema: schema, CreatedAt: created}, nil
}

// DeleteCollection drops the index with its documents, then the metadata.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(s.indexName(name), "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return &db.Error{Op: db.OpDeleteCollection, Err: fmt.Errorf("%w: collection %s", db.ErrNotFound, name)}
		}
		return opError(db.OpDeleteCollection, err)
	}
	del := s.b().Del().Key(s.metaKey(name), s.synonymKey(name)).Build()
	if err := s.do(ctx, del).Error(); err != nil {
		return opError(db.OpDeleteCollection, err)
	}
	return nil
}

// RetrieveCollection reads the stored schema and the live document count.
func (s *Store) RetrieveCollection(ctx context.Context, name string) (collection.Info, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(s.metaKey(name)).Build()).AsStrMap()
	if err != nil {
		return collection.Info{}, opError(db.OpRetrieveCollection, err)
	}
	if len(m) == 0 {
		return collection.Info{}, &db.Error{
			Op: db.OpRetrieveCollection, Err: fmt.Errorf("%w: collection %s", db.ErrNotFound, name),
		}
	}

	var info collection.Info
	if err := json.Unmarshal([]byte(m["schema"]), &info.Schema); err != nil {
		return collection.Info{}, &db.Error{Op: db.OpRetrieveCollection, Err: fmt.Errorf("decode schema: %w", err)}
	}
	info.CreatedAt, _ = strconv.ParseInt(m["created_at"], 10, 64)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(s.indexName(name)).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return collection.Info{}, &db.Error{
				Op: db.OpRetrieveCollection, Err: fmt.Errorf("%w: index for %s", db.ErrNotFound, name),
			}
		}
		return collection.Info{}, opError(db.OpRetrieveCollection, err)
	}
	info.NumDocuments = infoInt(raw, "num_docs")
	return info, nil
}

// infoInt finds key in a flat FT.INFO reply.
func infoInt(raw []rueidis.RedisMessage, key string) int64 {
	for i := 0; i+1 < len(raw); i += 2 {
		k, err := raw[i].ToString()
		if err != nil || k != key {
			continue
		}
		if v, err := raw[i+1].AsInt64(); err == nil {
			return v
		}
		if f, err := raw[i+1].AsFloat64(); err == nil {
			return int64(f)
		}
	}
	return 0
}
