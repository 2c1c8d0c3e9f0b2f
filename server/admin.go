package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"wasd/game"
)

type adminConfig struct {
	TickRate          *int     `json:"tickRate,omitempty"`
	StageClearDelayMs *int     `json:"stageClearDelayMs,omitempty"`
	Step              *float64 `json:"step,omitempty"`
	DeathLogSize      *int     `json:"deathLogSize,omitempty"`
}

func (c adminConfig) apply(s Settings) (Settings, error) {
	if c.TickRate != nil {
		if *c.TickRate < 1 || *c.TickRate > 120 {
			return s, errors.New("tickRate must be between 1 and 120")
		}
		s.TickRate = *c.TickRate
		s.TickInterval = game.IntervalForRate(*c.TickRate)
		// 未同时指定 step 时按新帧率换算，玩家速度保持不变
		if c.Step == nil {
			s.Rules.Tuning = game.TuningForRate(*c.TickRate)
		}
	}
	if c.StageClearDelayMs != nil {
		if *c.StageClearDelayMs <= 0 {
			return s, errors.New("stageClearDelayMs must be positive")
		}
		s.StageClearDelay = time.Duration(*c.StageClearDelayMs) * time.Millisecond
	}
	if c.Step != nil {
		if *c.Step <= 0 {
			return s, errors.New("step must be positive")
		}
		s.Rules.Tuning.Step = *c.Step
	}
	if c.DeathLogSize != nil {
		if *c.DeathLogSize < 1 {
			return s, errors.New("deathLogSize must be positive")
		}
		s.Rules.DeathLogSize = *c.DeathLogSize
	}
	// 单帧位移超过玩家尺寸会穿墙
	if s.Rules.Tuning.Step > s.Rules.Tuning.PlayerSize {
		return s, errors.New("step must be no larger than the player size; raise tickRate or lower step")
	}
	return s, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 新开局参数的读取与更新，进行中的对局不受影响
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func HandleAdminConfig(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		switch r.Method {
		case http.MethodGet:
			s := h.Settings()
			rate := s.Rate()
			delay := int(s.StageClearDelay / time.Millisecond)
			writeJSON(w, http.StatusOK, adminConfig{
				TickRate:          &rate,
				StageClearDelayMs: &delay,
				Step:              &s.Rules.Tuning.Step,
				DeathLogSize:      &s.Rules.DeathLogSize,
			})
			return
		case http.MethodPost:
			var body adminConfig
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			next, err := body.apply(h.Settings())
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.SetSettings(next)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			Log.Infof("config updated: rate=%d tick=%s stageClearDelay=%s step=%.2f deathLog=%d",
				next.TickRate, next.TickInterval, next.StageClearDelay, next.Rules.Tuning.Step, next.Rules.DeathLogSize)
			return
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
	}
}

// HandleAdminRooms 全部房间快照
// GET /admin/rooms
func HandleAdminRooms(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]any{"rooms": h.Rooms()})
	}
}

// HandleMetrics 输出进程与各进行中对局的运行指标
// GET /metrics
func HandleMetrics(h *Hub, t *WSTransport) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload := map[string]any{
			"server": h.ServerMetrics().Snapshot(),
			"games":  h.RoomMetrics(),
		}
		if t != nil {
			payload["connections"] = t.Len()
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
