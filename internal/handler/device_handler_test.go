package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"messmate/config"
	"messmate/internal/auth"
	"messmate/internal/domain"
	"messmate/internal/notify"
	"messmate/internal/notify/sqlitestore"
	"messmate/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deviceJWT = &config.JWTConfig{
	AccessSecret:  "s",
	RefreshSecret: "r",
	AccessExpiry:  time.Hour,
	RefreshExpiry: time.Hour,
	Issuer:        "test",
}

// browserPage answers device requests the way a capable, granted browser does.
type browserPage struct {
	conn     *websocket.Conn
	wmu      sync.Mutex
	deviceID chan string
	showErr  string
}

func (p *browserPage) run() {
	for {
		var f ws.Frame
		if err := p.conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Type == ws.EventWelcome {
			var w struct {
				DeviceID string `json:"deviceId"`
			}
			json.Unmarshal(f.Payload, &w)
			p.deviceID <- w.DeviceID
			continue
		}
		if f.ID == "" {
			continue
		}
		resp := ws.Frame{ID: f.ID}
		switch f.Type {
		case ws.ReqServiceWorker:
			resp.Payload = json.RawMessage(`{"ready":true}`)
		case ws.ReqPushGet:
			resp.Payload = json.RawMessage(`{"subscription":null}`)
		case ws.ReqShow, ws.ReqShowBasic:
			resp.Error = p.showErr
		default:
			resp.Error = "unsupported"
		}
		p.wmu.Lock()
		p.conn.WriteJSON(resp)
		p.wmu.Unlock()
	}
}

type deviceEnv struct {
	hub    *ws.DeviceHub
	api    *gin.Engine
	socket *httptest.Server
}

func newDeviceEnv(t *testing.T) *deviceEnv {
	t.Helper()
	store, err := sqlitestore.Open(sqlitestore.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &deviceEnv{hub: ws.NewDeviceHub()}
	factory := func(s *ws.DeviceSession) *notify.Manager {
		opts := s.PlatformOptions()
		opts.Store = store
		opts.VAPIDPublicKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"
		opts.Logger = log.New(io.Discard, "", 0)
		return notify.NewManager(opts)
	}
	sock := gin.New()
	sock.GET("/ws/device", ws.UpgradeDeviceWS(ws.DeviceOptions{JWT: deviceJWT, RPCTimeout: 2 * time.Second}, env.hub, factory))
	env.socket = httptest.NewServer(sock)
	t.Cleanup(env.socket.Close)

	h := NewDeviceHandler(env.hub)
	env.api = gin.New()
	for _, id := range []uint{7, 8} {
		g := env.api.Group("/u"+userKey(id), asUser(id, domain.RoleUser))
		g.GET("/devices", h.List)
		g.POST("/devices/:id/notifications", h.Show)
		g.GET("/devices/:id/notifications", h.History)
		g.PUT("/devices/:id/notifications/:nid/read", h.MarkRead)
		g.DELETE("/devices/:id/notifications", h.Clear)
	}
	return env
}

// connect opens a device session for userID and waits until its manager
// holds a registration.
func (e *deviceEnv) connect(t *testing.T, userID uint, showErr string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(deviceJWT, userID, "", domain.RoleUser)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(e.socket.URL, "http") + "/ws/device?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	p := &browserPage{conn: conn, deviceID: make(chan string, 1), showErr: showErr}
	require.NoError(t, conn.WriteJSON(ws.Frame{
		Type:    ws.EventHello,
		Payload: json.RawMessage(`{"permission":"granted","notifications":true,"serviceWorker":true,"push":true,"userAgent":"FakeBrowser/1.0"}`),
	}))
	go p.run()

	var id string
	select {
	case id = <-p.deviceID:
	case <-time.After(5 * time.Second):
		t.Fatal("no welcome frame")
	}
	s, ok := e.hub.Get(userID, id)
	require.True(t, ok)
	require.Eventually(t, func() bool { return s.Manager() != nil && s.Manager().Registration() != nil },
		5*time.Second, 10*time.Millisecond)
	return id
}

func (e *deviceEnv) show(t *testing.T, userID uint, device string, body interface{}) map[string]interface{} {
	t.Helper()
	w := do(e.api, http.MethodPost, "/u"+userKey(userID)+"/devices/"+device+"/notifications", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	require.Equal(t, true, out["shown"])
	return out["notification"].(map[string]interface{})
}

func (e *deviceEnv) history(t *testing.T, userID uint, device, query string) []interface{} {
	t.Helper()
	w := do(e.api, http.MethodGet, "/u"+userKey(userID)+"/devices/"+device+"/notifications"+query, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, _ := decode(t, w)["notifications"].([]interface{})
	return list
}

func TestDeviceHandler_ShowAndHistory(t *testing.T) {
	env := newDeviceEnv(t)
	d7 := env.connect(t, 7, "")
	d8 := env.connect(t, 8, "")

	meal := env.show(t, 7, d7, gin.H{"template": "meal-ready", "params": gin.H{"messName": "Green Leaf", "mealType": "lunch"}})
	assert.Equal(t, "Meal Ready", meal["title"])
	assert.Equal(t, "7", meal["userId"])
	assert.Equal(t, false, meal["read"])

	custom := env.show(t, 7, d7, gin.H{"notification": gin.H{"title": "Kitchen closed", "userId": "8", "priority": "urgent"}})
	assert.Equal(t, "7", custom["userId"], "owner comes from the caller")
	assert.Equal(t, "urgent", custom["priority"])

	all := env.history(t, 7, d7, "")
	require.Len(t, all, 2)
	assert.Equal(t, custom["id"], all[0].(map[string]interface{})["id"], "newest first")
	assert.Len(t, env.history(t, 7, d7, "?limit=1"), 1)
	assert.Len(t, env.history(t, 7, d7, "?limit=bogus"), 2)
	assert.Empty(t, env.history(t, 8, d8, ""), "records are scoped to the caller")

	w := do(env.api, http.MethodGet, "/u8/devices/"+d7+"/notifications", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "another user's device")

	w = do(env.api, http.MethodGet, "/u7/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["devices"], 1)
}

func TestDeviceHandler_MarkReadOwnRecordsOnly(t *testing.T) {
	env := newDeviceEnv(t)
	d7 := env.connect(t, 7, "")
	d8 := env.connect(t, 8, "")
	rec := env.show(t, 7, d7, gin.H{"template": "system-update", "params": gin.H{"version": "2.4.0"}})
	id := rec["id"].(string)

	w := do(env.api, http.MethodPut, "/u8/devices/"+d8+"/notifications/"+id+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, env.history(t, 7, d7, "")[0].(map[string]interface{})["read"])

	w = do(env.api, http.MethodPut, "/u7/devices/"+d7+"/notifications/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(env.api, http.MethodPut, "/u7/devices/"+d7+"/notifications/"+id+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, env.history(t, 7, d7, "")[0].(map[string]interface{})["read"])
}

func TestDeviceHandler_ClearOnlyCallersRecords(t *testing.T) {
	env := newDeviceEnv(t)
	d7 := env.connect(t, 7, "")
	d8 := env.connect(t, 8, "")
	for i := 0; i < 3; i++ {
		env.show(t, 7, d7, gin.H{"notification": gin.H{"title": "n"}})
	}
	env.show(t, 8, d8, gin.H{"notification": gin.H{"title": "keep"}})

	w := do(env.api, http.MethodDelete, "/u7/devices/"+d7+"/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["cleared"])
	assert.Empty(t, env.history(t, 7, d7, ""))
	assert.Len(t, env.history(t, 8, d8, ""), 1)
}

func TestDeviceHandler_ShowDisplayFailureKeepsRecord(t *testing.T) {
	env := newDeviceEnv(t)
	d7 := env.connect(t, 7, "NotAllowedError")

	w := do(env.api, http.MethodPost, "/u7/devices/"+d7+"/notifications", gin.H{"notification": gin.H{"title": "Payment Due"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["error"], "NotAllowedError")
	assert.Equal(t, false, body["shown"])
	rec, ok := body["notification"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Payment Due", rec["title"])
	assert.Len(t, env.history(t, 7, d7, ""), 1)
}
