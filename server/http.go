package server

import (
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// RouterConfig HTTP 层选项
type RouterConfig struct {
	Version string
	// PublicURL 邀请链接前缀；为空时按请求推导
	PublicURL string
	Profile   bool
}

// NewRouter 注册全部 HTTP 路由
func NewRouter(h *Hub, t *WSTransport, cfg RouterConfig) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, p any) {
		Log.Errorw("http panic", "path", r.URL.Path, "panic", p)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	mux.GET("/ws", t.ServeWS)
	mux.GET("/healthz", serveHealthCheck)
	mux.GET("/version", serveVersion(cfg.Version))
	mux.GET("/levels", serveLevels(h))
	mux.GET("/metrics", HandleMetrics(h, t))
	mux.GET("/admin/rooms", HandleAdminRooms(h))
	mux.GET("/admin/config", HandleAdminConfig(h))
	mux.POST("/admin/config", HandleAdminConfig(h))
	mux.GET("/rooms/:code/qr.png", serveRoomQR(h, cfg.PublicURL))

	if cfg.Profile {
		registerProfileHandlers(mux)
	}
	return mux
}

func serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func serveVersion(version string) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "wasd v"+version+"\n")
	}
}

// serveLevels 关卡数据只读，客户端据此绘制地图
func serveLevels(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]any{"levels": h.Levels()})
	}
}

// joinLink 邀请链接：{base}/?room=CODE
func joinLink(r *http.Request, publicURL, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(code)
}

// serveRoomQR 以 PNG 返回房间邀请链接的二维码
func serveRoomQR(h *Hub, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, ok := h.Room(ps.ByName("code"))
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinLink(r, publicURL, room.Code), qrcode.Medium, qrSize)
		if err != nil {
			Log.Errorw("qr generation", "room", room.Code, "error", err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func registerProfileHandlers(mux *httprouter.Router) {
	mux.Handler("GET", "/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", "/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", "/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", "/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", "/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", "/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", "/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", "/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", "/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", "/pprof/trace", pprof.Trace)
}
