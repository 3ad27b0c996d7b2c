package control

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout is the deadline for writing a websocket message.
const writeTimeout = 5 * time.Second

// streamEvents pushes the parameters on connect and after each change.
func (a *API) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warnf("control: websocket upgrade: %s", err.Error())
		return
	}
	defer conn.Close()

	updates, unsubscribe := a.Params.Subscribe()
	defer unsubscribe()

	// we never expect messages from the client but we must read to
	// process control frames and to notice when the client goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := a.writeParameters(conn, NewParametersView(a.Params.Snapshot())); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case sp := <-updates:
			if err := a.writeParameters(conn, NewParametersView(sp)); err != nil {
				return
			}
		}
	}
}

func (a *API) writeParameters(conn *websocket.Conn, view ParametersView) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(view); err != nil {
		a.Logger.Debugf("control: websocket write: %s", err.Error())
		return err
	}
	return nil
}
