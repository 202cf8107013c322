package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"messmate/config"
	"messmate/internal/auth"
	"messmate/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	helloWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ManagerFactory builds the notification manager for a new session, usually
// from s.PlatformOptions() plus a store and registry.
type ManagerFactory func(s *DeviceSession) *notify.Manager

type DeviceOptions struct {
	JWT               *config.JWTConfig
	RPCTimeout        time.Duration
	ReconcileInterval time.Duration
}

func writeError(conn *websocket.Conn, msg string) {
	raw, _ := json.Marshal(map[string]string{"message": msg})
	data, _ := json.Marshal(Frame{Type: EventError, Payload: raw})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, data)
}

// UpgradeDeviceWS upgrades /ws/device?token=<jwt>. The page must send a hello
// frame first; the server answers with welcome carrying the device id.
func UpgradeDeviceWS(opts DeviceOptions, hub *DeviceHub, factory ManagerFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		token := c.Query("token")
		if token == "" {
			writeError(conn, "token required")
			conn.Close()
			return
		}
		claims, err := auth.ParseAccessToken(opts.JWT, token)
		if err != nil {
			writeError(conn, "invalid token")
			conn.Close()
			return
		}

		hello, err := readHello(conn)
		if err != nil {
			writeError(conn, "hello expected")
			conn.Close()
			return
		}

		s := newDeviceSession(uuid.NewString(), claims.UserID, claims.Role, conn, hello, opts.RPCTimeout)
		go s.writePump()
		s.setManager(factory(s))
		hub.Register(s)
		defer hub.Unregister(s)
		log.Printf("[device] %s connected (user %d, permission %s)", s.ID, s.UserID, hello.Permission)

		if err := s.event(EventWelcome, welcomePayload{DeviceID: s.ID}); err != nil {
			s.Close()
			return
		}
		go maintain(s, opts.ReconcileInterval)
		s.readPump()
		log.Printf("[device] %s disconnected", s.ID)
	}
}

func readHello(conn *websocket.Conn) (Hello, error) {
	var hello Hello
	conn.SetReadDeadline(time.Now().Add(helloWait))
	defer conn.SetReadDeadline(time.Time{})
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, err
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return hello, err
	}
	if f.Type != EventHello {
		return hello, errUnexpectedFrame
	}
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &hello); err != nil {
			return hello, err
		}
	}
	if hello.Permission == "" {
		hello.Permission = notify.PermissionDefault
	}
	return hello, nil
}

// maintain initialises the manager and keeps the registry in step with the
// browser subscription until the session ends.
func maintain(s *DeviceSession, every time.Duration) {
	m := s.Manager()
	if m == nil {
		return
	}
	ctx := s.Context()
	m.Init(ctx)
	reconcile(s, m)
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcile(s, m)
		}
	}
}

func reconcile(s *DeviceSession, m *notify.Manager) {
	if err := m.ReconcileSubscription(s.Context()); err != nil && s.Context().Err() == nil {
		log.Printf("[device] %s reconcile subscription: %v", s.ID, err)
	}
}
