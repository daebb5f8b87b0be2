// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64

	wsActiveGauge = "ws_active_connections"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ReviewClient 订阅某个面板审核事件的连接
type ReviewClient struct {
	conn      *websocket.Conn
	panelID   string
	send      chan []byte
	createdAt time.Time
}

type panelMessage struct {
	panelID string
	data    []byte
}

// ReviewHub 按面板分组管理审核订阅者，并把变换事件推送给它们
type ReviewHub struct {
	clients    map[string]map[*ReviewClient]struct{} // panelID -> clients
	register   chan *ReviewClient
	unregister chan *ReviewClient
	broadcast  chan panelMessage
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	mutex      sync.RWMutex

	metrics *utils.MetricsCollector
	logger  *utils.Logger
}

// NewReviewHub 创建并启动审核推送中心
func NewReviewHub(metrics *utils.MetricsCollector) *ReviewHub {
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	hub := &ReviewHub{
		clients:    make(map[string]map[*ReviewClient]struct{}),
		register:   make(chan *ReviewClient),
		unregister: make(chan *ReviewClient),
		broadcast:  make(chan panelMessage, 256),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     utils.GetLogger(),
	}
	hub.wg.Add(1)
	go hub.run()
	return hub
}

// run 主循环，所有成员变更都在这里完成
func (h *ReviewHub) run() {
	defer h.wg.Done()
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-h.done:
			h.shutdown()
			return
		}
	}
}

func (h *ReviewHub) addClient(client *ReviewClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.panelID] == nil {
		h.clients[client.panelID] = make(map[*ReviewClient]struct{})
	}
	h.clients[client.panelID][client] = struct{}{}
	h.metrics.IncGauge(wsActiveGauge)

	h.logger.Info("review client connected", map[string]interface{}{"panel_id": client.panelID})
}

// removeClient 只有仍在表中的客户端才会关闭 send，保证只关闭一次
func (h *ReviewHub) removeClient(client *ReviewClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.clients[client.panelID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.panelID)
	}
	close(client.send)
	h.metrics.DecGauge(wsActiveGauge)

	h.logger.Info("review client disconnected", map[string]interface{}{"panel_id": client.panelID})
}

func (h *ReviewHub) deliver(msg panelMessage) {
	h.mutex.RLock()
	var slow []*ReviewClient
	for client := range h.clients[msg.panelID] {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	// 队列满的客户端直接断开
	for _, client := range slow {
		h.logger.Warn("review client too slow, dropping", map[string]interface{}{"panel_id": client.panelID})
		h.removeClient(client)
	}
}

func (h *ReviewHub) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			close(client.send)
			h.metrics.DecGauge(wsActiveGauge)
		}
	}
	h.clients = make(map[string]map[*ReviewClient]struct{})
}

// Stop 关闭所有连接并等待主循环退出
func (h *ReviewHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

// NotifyTransform 把变换事件推送给订阅该面板的客户端，队列满时丢弃
func (h *ReviewHub) NotifyTransform(event services.TransformEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode transform event", map[string]interface{}{"error": err.Error()})
		return
	}
	select {
	case h.broadcast <- panelMessage{panelID: event.PanelID, data: data}:
	case <-h.done:
	default:
		h.logger.Warn("review broadcast queue full, event dropped", map[string]interface{}{"panel_id": event.PanelID})
	}
}

// ClientCount 返回订阅某个面板的连接数
func (h *ReviewHub) ClientCount(panelID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[panelID])
}

// GetStatus 获取连接状态
func (h *ReviewHub) GetStatus() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	panels := make(map[string]int, len(h.clients))
	total := 0
	for panelID, clients := range h.clients {
		panels[panelID] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_panels":      len(panels),
		"total_connections": total,
		"panels":            panels,
	}
}

// Serve 把已升级的连接注册到面板并阻塞到连接关闭
func (h *ReviewHub) Serve(conn *websocket.Conn, panelID string) {
	client := &ReviewClient{
		conn:      conn,
		panelID:   panelID,
		send:      make(chan []byte, wsSendBuffer),
		createdAt: time.Now(),
	}

	// 欢迎消息先入队，注册之后 send 只由主循环关闭
	welcome, _ := json.Marshal(gin.H{
		"type":      "connected",
		"panel_id":  panelID,
		"timestamp": client.createdAt.UTC(),
	})
	client.send <- welcome

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writePump(client)
	}()
	h.readPump(client)
}

// readPump 只处理控制帧，客户端断开后注销
func (h *ReviewHub) readPump(client *ReviewClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump send 关闭后发送关闭帧并退出
func (h *ReviewHub) writePump(client *ReviewClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
