package hover

import (
	"io"
	"net/http"

	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/gorilla/websocket"
)

// Server answers one Response per JSON Request over a websocket until the
// client goes away.
type Server struct {
	svc      *Service
	Upgrader websocket.Upgrader
	Log      io.Writer
	Verbose  bool
}

func NewServer(svc *Service, log io.Writer, verbose bool) *Server {
	return &Server{
		svc: svc,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Log:     log,
		Verbose: verbose,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Info(s.Log, s.Verbose, "upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	util.Info(s.Log, s.Verbose, "client %s connected", r.RemoteAddr)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.Info(s.Log, s.Verbose, "client %s: %v", r.RemoteAddr, err)
			}
			return
		}
		resp := s.svc.Hover(req)
		if resp.Diagnostic != nil {
			util.Info(s.Log, s.Verbose, "request %d: %s error %s", req.ID, resp.Diagnostic.Stage, resp.Diagnostic.Kind)
		}
		if err := conn.WriteJSON(resp); err != nil {
			util.Info(s.Log, s.Verbose, "client %s: write: %v", r.RemoteAddr, err)
			return
		}
	}
}
