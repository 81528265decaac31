package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

func productsSchema() collection.Schema {
	return collection.Schema{
		Name: "products",
		Fields: []field.Field{
			{Name: "name", Type: field.String},
			{Name: "brand", Type: field.String, Facet: true},
			{Name: "price", Type: field.Float, Sort: true},
			{Name: "tags", Type: field.StringArray},
			{Name: "category", Type: field.Object},
			{Name: "labels.name", Type: field.StringArray},
		},
	}
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNodesFromAddrs(t *testing.T) {
	nodes := nodesFromAddrs([]string{"redis-1:6380", "redis-2"})
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Host != "redis-1" || nodes[0].Port != 6380 {
		t.Errorf("node 0 = %+v", nodes[0])
	}
	if nodes[1].Port != 6379 || nodes[1].Role != cluster.RoleLeader {
		t.Errorf("node 1 = %+v", nodes[1])
	}
}

// --- ftindex.go tests ---

func TestIndexFromSchema_Args(t *testing.T) {
	idx := indexFromSchema("test:products:idx", "test:doc:products:", productsSchema())
	args, err := idx.args()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(args, " ")

	for _, want := range []string{
		"test:products:idx ON JSON PREFIX 1 test:doc:products: SCHEMA",
		"$.id AS id TAG",
		"$.name AS name TEXT",
		"$.brand AS brand TAG",
		"$.price AS price NUMERIC SORTABLE",
		"$.tags[*] AS tags TAG",
		"$.labels[*].name AS labels.name TAG",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args missing %q\n got: %s", want, got)
		}
	}
	if strings.Contains(got, "category") {
		t.Errorf("object fields must not be indexed: %s", got)
	}
}

func TestIndexArgs_Validation(t *testing.T) {
	if _, err := (ftIndex{}).args(); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := (ftIndex{Name: "x"}).args(); err == nil {
		t.Error("expected error for no fields")
	}
	dup := ftIndex{Name: "x", Fields: []ftField{{Path: "$.a", Alias: "a"}, {Path: "$.b", Alias: "a"}}}
	if _, err := dup.args(); err == nil {
		t.Error("expected duplicate field error")
	}
}

// --- collections.go tests ---

func TestCreateCollection_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXISTS", "test:collection:products")).
			Return(mock.Result(mock.RedisInt64(0))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "HSET" && cmd[1] == "test:collection:products"
			})).
			Return(mock.Result(mock.RedisInt64(2))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "FT.CREATE" && cmd[1] == "test:products:idx"
			})).
			Return(mock.Result(mock.RedisString("OK"))),
	)

	s := NewStoreForTest(c)
	info, err := s.CreateCollection(context.Background(), productsSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "products" || info.CreatedAt == 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestCreateCollection_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "test:collection:products")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	_, err := s.CreateCollection(context.Background(), productsSchema())
	if !errors.Is(err, db.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateCollection_RollsBackMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXISTS", "test:collection:products")).
			Return(mock.Result(mock.RedisInt64(0))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" })).
			Return(mock.Result(mock.RedisInt64(2))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
			Return(mock.ErrorResult(context.DeadlineExceeded)),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "test:collection:products")).
			Return(mock.Result(mock.RedisInt64(1))),
	)

	s := NewStoreForTest(c)
	_, err := s.CreateCollection(context.Background(), productsSchema())
	if err == nil {
		t.Fatal("expected error")
	}
	if !db.IsTransient(err) {
		t.Errorf("network failure should be transient: %v", err)
	}
}

func TestDeleteCollection_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:products:idx", "DD")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	err := s.DeleteCollection(context.Background(), "products")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCollection_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:products:idx", "DD")).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "test:collection:products", "test:synonyms:products")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := NewStoreForTest(c)
	if err := s.DeleteCollection(context.Background(), "products"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetrieveCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:collection:products")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"schema":     mock.RedisString(`{"name":"products","fields":[{"name":"name","type":"string"}]}`),
			"created_at": mock.RedisString("1700000000"),
		})))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:products:idx")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("index_name"), mock.RedisString("test:products:idx"),
			mock.RedisString("num_docs"), mock.RedisString("12"),
		)))

	s := NewStoreForTest(c)
	info, err := s.RetrieveCollection(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.NumDocuments != 12 || info.CreatedAt != 1700000000 || len(info.Fields) != 1 {
		t.Errorf("info = %+v", info)
	}
}

func TestRetrieveCollection_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:collection:missing")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.RetrieveCollection(context.Background(), "missing")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- documents.go tests ---

func TestImportDocuments_PerDocumentResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "test:collection:products")).
		Return(mock.Result(mock.RedisInt64(1)))
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisError("ERR wrong type")),
		})

	s := NewStoreForTest(c)
	docs := []document.Document{{"id": "1"}, {"name": "no id"}, {"id": "3"}}
	res, err := s.ImportDocuments(context.Background(), "products", docs, document.ActionUpsert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if !res[0].Success {
		t.Errorf("result 0 = %+v", res[0])
	}
	if res[1].Success || !strings.Contains(res[1].Error, "id") {
		t.Errorf("result 1 = %+v", res[1])
	}
	if res[2].Success || !strings.Contains(res[2].Error, "wrong type") {
		t.Errorf("result 2 = %+v", res[2])
	}
}

func TestImportDocuments_MissingCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "test:collection:products")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	_, err := s.ImportDocuments(context.Background(), "products", []document.Document{{"id": "1"}}, "")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestImportDocuments_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	res, err := s.ImportDocuments(context.Background(), "products", nil, "")
	if err != nil || res != nil {
		t.Errorf("got %v, %v", res, err)
	}
}

func TestJSONSet_ActionModifiers(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	createCmd := s.jsonSet("products", "1", []byte(`{}`), document.ActionCreate)
	create := createCmd.Commands()
	if create[len(create)-1] != "NX" {
		t.Errorf("create = %v", create)
	}
	updateCmd := s.jsonSet("products", "1", []byte(`{}`), document.ActionUpdate)
	update := updateCmd.Commands()
	if update[len(update)-1] != "XX" {
		t.Errorf("update = %v", update)
	}
	upsertCmd := s.jsonSet("products", "1", []byte(`{}`), document.ActionUpsert)
	upsert := upsertCmd.Commands()
	if len(upsert) != 4 || upsert[1] != "test:doc:products:1" {
		t.Errorf("upsert = %v", upsert)
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "test:doc:products:9")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	err := s.DeleteDocument(context.Background(), "products", "9")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRetrieveDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "test:doc:products:1")).
		Return(mock.Result(mock.RedisString(`{"id":"1","name":"lamp"}`)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "test:doc:products:2")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	doc, err := s.RetrieveDocument(context.Background(), "products", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["name"] != "lamp" {
		t.Errorf("doc = %v", doc)
	}

	_, err = s.RetrieveDocument(context.Background(), "products", "2")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- search.go tests ---

func TestSearch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got := strings.Join(cmd, " ")
			return cmd[0] == "FT.SEARCH" &&
				strings.Contains(got, "@name:(lamp)") &&
				strings.Contains(got, "SORTBY price DESC") &&
				strings.Contains(got, "LIMIT 5 5")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("test:doc:products:7"),
			mock.RedisArray(mock.RedisString("$"), mock.RedisString(`{"id":"7","name":"lamp"}`)),
		)))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), "products", document.SearchParams{
		Q: "lamp", QueryBy: "name", SortBy: "price:desc", Page: 2, PerPage: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Found != 1 || len(res.Hits) != 1 || res.Hits[0].Document.ID() != "7" {
		t.Errorf("res = %+v", res)
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		p    document.SearchParams
		want string
	}{
		{document.SearchParams{}, "*"},
		{document.SearchParams{Q: "*"}, "*"},
		{document.SearchParams{Q: "a-b"}, `(a\-b)`},
		{document.SearchParams{Q: "x", QueryBy: "name, brand"}, "@name|brand:(x)"},
		{document.SearchParams{FilterBy: "@price:[1 5]"}, "@price:[1 5]"},
	}
	for _, tt := range tests {
		if got := buildQuery(tt.p); got != tt.want {
			t.Errorf("buildQuery(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

// --- synonyms.go tests ---

func TestUpsertSynonym(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SYNUPDATE", "test:products:idx", "tv", "tv", "television")).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "test:synonyms:products" && cmd[2] == "tv"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.UpsertSynonym(context.Background(), "products",
		synonym.Synonym{ID: "tv", Root: "tv", Synonyms: []string{"television"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListSynonyms_SortedByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "test:synonyms:products")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"b": mock.RedisString(`{"id":"b","synonyms":["x","y"]}`),
			"a": mock.RedisString(`{"id":"a","root":"r","synonyms":["z"]}`),
		})))

	s := NewStoreForTest(c)
	list, err := s.ListSynonyms(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Collection != "products" || list[0].Root != "r" {
		t.Errorf("list[0] = %+v", list[0])
	}
}

func TestDeleteSynonym(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HDEL", "test:synonyms:products", "tv")).
		Return(mock.Result(mock.RedisInt64(1)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HDEL", "test:synonyms:products", "none")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	if err := s.DeleteSynonym(context.Background(), "products", "tv"); !errors.Is(err, db.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if err := s.DeleteSynonym(context.Background(), "products", "none"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- nodes.go tests ---

func TestProbeDebug_Roles(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("# Server\r\nredis_version:8.0.2\r\n")),
			mock.Result(mock.RedisString("# Replication\r\nrole:slave\r\n")),
		})

	node := cluster.Node{Host: "redis-2", Port: 6379}
	s := NewStoreForTest(c, node)
	info, err := s.ProbeDebug(context.Background(), node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Version != "8.0.2" || info.State != cluster.StateFollower {
		t.Errorf("info = %+v", info)
	}
}

func TestProbeHealth_ErrorCarriesNode(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	node := cluster.Node{Host: "redis-3", Port: 6379}
	s := NewStoreForTest(c, node)
	ok, err := s.ProbeHealth(context.Background(), node)
	if ok || err == nil {
		t.Fatalf("expected failure, got %v, %v", ok, err)
	}
	var de *db.Error
	if !errors.As(err, &de) || de.Node == nil || de.Node.Host != "redis-3" {
		t.Errorf("expected node origin, got %v", err)
	}
}

func TestParseInfo(t *testing.T) {
	kv := parseInfo("# Stats\r\ntotal_connections_received:4\r\n\r\ninstantaneous_ops_per_sec:0\r\n")
	if kv["total_connections_received"] != "4" || len(kv) != 2 {
		t.Errorf("kv = %v", kv)
	}
}
