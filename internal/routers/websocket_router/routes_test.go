package websocket_router

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/internal/service"
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	svc service.LibraryService
	wss *pkgapp.WebsocketServer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	cfg := dao.DatabaseConfig{Type: "sqlite", Path: filepath.Join(dir, "main.sqlite3"), LibraryDir: filepath.Join(dir, "library")}
	db, err := dao.NewDBEngineWithConfig(cfg, nil)
	require.NoError(t, err)
	svc := service.NewLibraryService(dao.New(db, ctx, dao.WithConfig(&cfg)))
	t.Cleanup(func() {
		_ = svc.Shutdown(ctx)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	v, err := pkgapp.NewValidator()
	require.NoError(t, err)
	wss, err := pkgapp.NewWebsocketServer(pkgapp.WSConfig{}, nil)
	require.NoError(t, err)
	Register(wss, NewWSHandler(nil, v))
	return &harness{t: t, svc: svc, wss: wss}
}

func (h *harness) client() *pkgapp.WebsocketClient {
	c := pkgapp.NewTestClient(service.NewSession(h.svc))
	h.t.Cleanup(func() {
		_ = c.Session().Close(context.Background())
		c.Close()
	})
	return c
}

// send 发送一条信封并解析回复
func (h *harness) send(c *pkgapp.WebsocketClient, msg string) map[string]any {
	h.t.Helper()
	var reply map[string]any
	require.NoError(h.t, json.Unmarshal(h.wss.Dispatch(c, []byte(msg)), &reply), msg)
	return reply
}

func data(reply map[string]any) any {
	p, _ := reply["payload"].(map[string]any)
	return p["data"]
}

func TestRoutesTable(t *testing.T) {
	routes := Routes(NewWSHandler(nil, nil))
	assert.Len(t, routes, 15)
	for _, typ := range []string{TypeFile, TypeFolder, TypeTag} {
		for _, action := range []string{ActionQuery, ActionCreate, ActionUpdate, ActionDelete} {
			assert.Contains(t, routes, pkgapp.Route{Action: action, Type: typ})
		}
	}
	assert.NotContains(t, routes, pkgapp.Route{Action: ActionDelete, Type: TypeLibrary})
}

func TestLibraryLifecycle(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	reply := h.send(c, `{"action":"query","requestId":1,"payload":{"type":"folder","data":{"query":{}}}}`)
	assert.Equal(t, "error", reply["status"])
	assert.Contains(t, reply["error"], "No library is open")

	reply = h.send(c, `{"action":"create","requestId":"c1","payload":{"type":"library","data":{"id":"lib-1","name":"Main"}}}`)
	require.Nil(t, reply["status"], reply["error"])
	assert.Equal(t, "c1", reply["requestId"])
	got := data(reply).(map[string]any)
	assert.Equal(t, "lib-1", got["id"])
	assert.Equal(t, "connected", got["status"])
	assert.Equal(t, "Main", got["config"].(map[string]any)["name"])

	reply = h.send(c, `{"action":"query","libraryId":"other","payload":{"type":"folder","data":{}}}`)
	assert.Equal(t, "error", reply["status"])

	reply = h.send(c, `{"action":"close","payload":{"type":"library"}}`)
	assert.Equal(t, map[string]any{"id": "lib-1", "status": "closed"}, data(reply))

	reply = h.send(c, `{"action":"close","payload":{"type":"library"}}`)
	assert.Equal(t, "error", reply["status"])

	// 关闭后携带 libraryId 也不会重新绑定
	reply = h.send(c, `{"action":"create","libraryId":"lib-1","payload":{"type":"folder","data":{"title":"late"}}}`)
	assert.Equal(t, "error", reply["status"])
	assert.Contains(t, reply["error"], "No library is open")

	reply = h.send(c, `{"action":"create","libraryId":"from-envelope","payload":{"type":"library","data":{}}}`)
	assert.Equal(t, "from-envelope", data(reply).(map[string]any)["id"])

	// 新连接通过 libraryId 隐式绑定已注册的库
	fresh := h.client()
	reply = h.send(fresh, `{"action":"query","libraryId":"lib-1","payload":{"type":"folder","data":{"query":{}}}}`)
	require.Nil(t, reply["status"], reply["error"])
	assert.Equal(t, []any{}, data(reply))
}

func TestFolderAndTagHandlers(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	h.send(c, `{"action":"create","payload":{"type":"library","data":{"id":"lib"}}}`)

	reply := h.send(c, `{"action":"create","payload":{"type":"folder","data":{"id":5,"title":"Docs"}}}`)
	assert.Equal(t, map[string]any{"id": 5.0}, data(reply))
	reply = h.send(c, `{"action":"create","payload":{"type":"folder","data":{"title":"Sub","parent_id":5}}}`)
	sub := data(reply).(map[string]any)["id"].(float64)

	reply = h.send(c, `{"action":"delete","payload":{"type":"folder","data":{"id":5}}}`)
	assert.Contains(t, reply["error"], "Folder is not empty")

	reply = h.send(c, `{"action":"update","payload":{"type":"folder","data":{"id":`+jsonNum(sub)+`,"parent_id":null}}}`)
	assert.Equal(t, map[string]any{"success": true}, data(reply))

	reply = h.send(c, `{"action":"query","payload":{"type":"folder","data":{"query":{"root":true}}}}`)
	assert.Len(t, data(reply), 2)

	reply = h.send(c, `{"action":"update","payload":{"type":"folder","data":{"id":5,"parent_id":`+jsonNum(sub)+`}}}`)
	require.Nil(t, reply["status"], reply["error"])
	reply = h.send(c, `{"action":"update","payload":{"type":"folder","data":{"id":`+jsonNum(sub)+`,"parent_id":5}}}`)
	assert.Contains(t, reply["error"], "cycle")

	reply = h.send(c, `{"action":"create","payload":{"type":"folder","data":{"title":""}}}`)
	assert.Contains(t, reply["error"], "Invalid params")

	reply = h.send(c, `{"action":"delete","requestId":"d","payload":{"type":"tag","data":{"id":42}}}`)
	assert.Equal(t, "error", reply["status"])
	assert.Equal(t, "d", reply["requestId"])
	assert.Contains(t, reply["error"], "Tag not found")

	reply = h.send(c, `{"action":"create","payload":{"type":"tag","data":{"title":"red"}}}`)
	tag := data(reply).(map[string]any)["id"].(float64)
	reply = h.send(c, `{"action":"delete","payload":{"type":"tag","data":{"id":`+jsonNum(tag)+`}}}`)
	assert.Equal(t, map[string]any{"success": true}, data(reply))
}

func TestFileHandlers(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	h.send(c, `{"action":"create","payload":{"type":"library","data":{"id":"lib"}}}`)
	h.send(c, `{"action":"create","payload":{"type":"folder","data":{"id":1,"title":"Docs"}}}`)
	h.send(c, `{"action":"create","payload":{"type":"tag","data":{"id":2,"title":"red"}}}`)

	reply := h.send(c, `{"action":"create","payload":{"type":"file","data":{"name":"a.txt","created_at":1000,"size":5,"hash":"ff","notes":"n","folder_id":1,"tags":[2],"reference":"https://x","path":"a/b.txt"}}}`)
	require.Nil(t, reply["status"], reply["error"])
	id := data(reply).(map[string]any)["id"].(float64)

	reply = h.send(c, `{"action":"query","payload":{"type":"file","data":{"query":{"tag_id":2}}}}`)
	files := data(reply).([]any)
	require.Len(t, files, 1)
	f := files[0].(map[string]any)
	assert.Equal(t, "a.txt", f["name"])
	assert.Equal(t, 1000.0, f["created_at"])
	assert.Equal(t, 5.0, f["size"])
	assert.Equal(t, "ff", f["hash"])
	assert.Equal(t, "n", f["notes"])
	assert.Equal(t, 1.0, f["folder_id"])
	assert.Equal(t, []any{2.0}, f["tags"])
	assert.Equal(t, "https://x", f["reference"])
	assert.Equal(t, "a/b.txt", f["path"])
	assert.NotZero(t, f["imported_at"])

	reply = h.send(c, `{"action":"update","payload":{"type":"file","data":{"id":`+jsonNum(id)+`,"folder_id":null,"tags":[]}}}`)
	require.Nil(t, reply["status"], reply["error"])

	reply = h.send(c, `{"action":"delete","payload":{"type":"file","data":{"id":`+jsonNum(id)+`,"options":{"hash_only":true}}}}`)
	require.Nil(t, reply["status"], reply["error"])

	reply = h.send(c, `{"action":"query","payload":{"type":"file","data":{"query":{"ids":[`+jsonNum(id)+`]}}}}`)
	f = data(reply).([]any)[0].(map[string]any)
	assert.Nil(t, f["folder_id"])
	assert.Equal(t, []any{}, f["tags"])
	assert.Equal(t, "", f["hash"])

	reply = h.send(c, `{"action":"query","payload":{"type":"library","data":{"query":"SELECT count(*) AS n FROM file"}}}`)
	assert.Equal(t, []any{map[string]any{"n": 1.0}}, data(reply))
	reply = h.send(c, `{"action":"query","payload":{"type":"library","data":{"query":"DELETE FROM file"}}}`)
	assert.Contains(t, reply["error"], "read-only")

	reply = h.send(c, `{"action":"create","payload":{"type":"file","data":{"name":"epoch.txt","created_at":0}}}`)
	require.Nil(t, reply["status"], reply["error"])
	epoch := data(reply).(map[string]any)["id"].(float64)
	reply = h.send(c, `{"action":"query","payload":{"type":"file","data":{"query":{"ids":[`+jsonNum(epoch)+`]}}}}`)
	assert.Equal(t, 0.0, data(reply).([]any)[0].(map[string]any)["created_at"])
	h.send(c, `{"action":"delete","payload":{"type":"file","data":{"id":`+jsonNum(epoch)+`}}}`)

	reply = h.send(c, `{"action":"delete","payload":{"type":"file","data":{"id":`+jsonNum(id)+`}}}`)
	assert.Equal(t, map[string]any{"success": true}, data(reply))
	reply = h.send(c, `{"action":"delete","payload":{"type":"file","data":{"id":`+jsonNum(id)+`}}}`)
	assert.Contains(t, reply["error"], "File not found")
}

func TestUnsupportedRoute(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	reply := h.send(c, `{"action":"delete","requestId":9,"payload":{"type":"library","data":{}}}`)
	assert.Equal(t, "error", reply["status"])
	assert.Equal(t, 9.0, reply["requestId"])
	assert.Contains(t, reply["error"], "Unsupported operation")
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}
