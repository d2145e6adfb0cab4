package statusservice

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks subscriber connections by task id.
// A client sends the task id it wants to follow as a plain text frame
type WSConnKeeper struct {
	taskConnectionMap map[string]map[WsConn]struct{}
	connectionTaskMap map[WsConn]string
	mapLock           *sync.Mutex
	timeOut           time.Duration
}

// NewWSConnKeeper creates manager
func NewWSConnKeeper() *WSConnKeeper {
	res := &WSConnKeeper{}
	res.taskConnectionMap = make(map[string]map[WsConn]struct{})
	res.connectionTaskMap = make(map[WsConn]string)
	res.mapLock = &sync.Mutex{}
	res.timeOut = time.Minute * 30 // max time limit for one connection
	return res
}

// HandleConnection loops until connection active and saves connection under the sent task id
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		defer goapp.Log.Debug().Msg("read routine ended")
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return
			}
			msg := strings.TrimSpace(string(message))
			goapp.Log.Debug().Str("msg", goapp.Sanitize(msg)).Msg("got msg")
			if msg != "" {
				readCh <- msg
			} else {
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	ta := time.After(kp.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				goapp.Log.Debug().Msg("conn read closed?")
				break loop
			}
			kp.saveConnection(conn, msg)
			ta = time.After(kp.timeOut)
		}
	}
	goapp.Log.Info().Msg("handleConnection finish")
	return nil
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	taskID, found := kp.connectionTaskMap[conn]
	if found {
		conns, found := kp.taskConnectionMap[taskID]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.taskConnectionMap, taskID)
			}
		}
	}
	delete(kp.connectionTaskMap, conn)
	goapp.Log.Info().Int("active", len(kp.connectionTaskMap)).Msg("deleteConnection finish")
}

func (kp *WSConnKeeper) saveConnection(conn WsConn, taskID string) {
	goapp.Log.Info().Str("taskID", taskID).Msg("saveConnection")
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connectionTaskMap[conn] = taskID
	conns, found := kp.taskConnectionMap[taskID]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.taskConnectionMap[taskID] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Info().Int("active", len(kp.connectionTaskMap)).Msg("saveConnection finish")
}

// GetConnections returns saved connections by provided task id
func (kp *WSConnKeeper) GetConnections(taskID string) ([]WsConn, bool) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	cm, found := kp.taskConnectionMap[taskID]
	if found {
		res := []WsConn{}
		for c := range cm {
			res = append(res, c)
		}
		return res, true
	}
	goapp.Log.Debug().Str("taskID", taskID).Msgf("no ws connections")
	return nil, false
}
