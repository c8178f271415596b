package livereload

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
)

// Path is the websocket endpoint.
const Path = "/livereload"

// ScriptPath serves a snippet pages can include to follow the hub.
const ScriptPath = "/livereload.js"

const script = `(function () {
  var loc = document.currentScript ? new URL(document.currentScript.src) : window.location;
  var ws = new WebSocket((loc.protocol === "https:" ? "wss://" : "ws://") + loc.host + "` + Path + `");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") { window.location.reload(); }
    if (msg.type === "status") { document.title = msg.status + " | " + document.title.replace(/^.* \| /, ""); }
  };
})();
`

// Handler returns the routes served by the live reload endpoint.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	mux.HandleFunc(ScriptPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(script))
	})
	return mux
}

// Serve listens on host:port and serves the hub until ctx is done.
func (h *Hub) Serve(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeConnect, "live reload listen", err).WithContext("addr", addr)
	}
	return h.serveListener(ctx, ln)
}

func (h *Hub) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.logger.Info(ctx, "Live reload listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
