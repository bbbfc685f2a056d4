package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wifirouterd/internal/hostapd"
	"wifirouterd/internal/router"
	"wifirouterd/pkg/types"
)

// Service defines the router session operations the HTTP layer exposes.
type Service interface {
	Configure(ctx context.Context, cfg *hostapd.Config, multiInterface bool) (*router.APInstance, error)
	Deconfig(ctx context.Context) error
	DeconfigAP(ctx context.Context, index int, silent bool) error
	JoinIBSS(ctx context.Context, cfg *hostapd.Config) (*router.StationInstance, error)
	ConnectManaged(ctx context.Context, apIndex int) (*router.StationInstance, error)
	GetSSID(index int) (string, error)
	APCount() int
	DeauthClient(ctx context.Context, clientMAC string) error
	SendManagementFrame(ctx context.Context, req router.FrameRequest) (int, error)
	Status() types.StatusResponse
}

var startTime = time.Now()

// NewMux builds the HTTP control surface over one router session. The
// session itself is single-threaded, so every mutating handler runs under
// one mutex; the controller stays lock-free.
func NewMux(svc Service) http.Handler {
	var mu sync.Mutex

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		st := svc.Status()
		mu.Unlock()
		st.UptimeSeconds = int64(time.Since(startTime).Seconds())
		st.ServerTimeUnix = time.Now().Unix()
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/ssid", func(w http.ResponseWriter, r *http.Request) {
		index := -1
		if v := r.URL.Query().Get("index"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid index")
				return
			}
			index = n
		}
		mu.Lock()
		ssid, err := svc.GetSSID(index)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.SSIDResponse{SSID: ssid})
	})

	r.Post("/aps", func(w http.ResponseWriter, r *http.Request) {
		var req types.ConfigureRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cfg, err := buildAPConfig(req)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		inst, err := svc.Configure(joinedCtx, cfg, req.MultiInterface)
		count := svc.APCount()
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.ConfigureResponse{
			SSID:      inst.SSID,
			Interface: inst.Interface,
			Index:     count - 1,
		})
	})

	r.Delete("/aps", func(w http.ResponseWriter, r *http.Request) {
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		err := svc.Deconfig(joinedCtx)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Delete("/aps/{index}", func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid index")
			return
		}
		silent := r.URL.Query().Get("silent") == "1"
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		err = svc.DeconfigAP(joinedCtx, index, silent)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/stations/ibss", func(w http.ResponseWriter, r *http.Request) {
		var req types.ConfigureRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cfg, err := buildAPConfig(req)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		inst, err := svc.JoinIBSS(joinedCtx, cfg)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.ConfigureResponse{
			SSID:      inst.SSID,
			Interface: inst.Interface,
		})
	})

	r.Post("/stations/managed", func(w http.ResponseWriter, r *http.Request) {
		var req types.ConnectManagedRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		inst, err := svc.ConnectManaged(joinedCtx, req.APIndex)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.ConfigureResponse{
			SSID:      inst.SSID,
			Interface: inst.Interface,
		})
	})

	r.Delete("/stations", func(w http.ResponseWriter, r *http.Request) {
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		err := svc.Deconfig(joinedCtx)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/deauth", func(w http.ResponseWriter, r *http.Request) {
		var req types.DeauthRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ClientMAC) == "" {
			writeJSONError(w, http.StatusBadRequest, "client_mac is required")
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		err := svc.DeauthClient(joinedCtx, req.ClientMAC)
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/frames", func(w http.ResponseWriter, r *http.Request) {
		var req types.FrameRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		mu.Lock()
		pid, err := svc.SendManagementFrame(joinedCtx, router.FrameRequest{
			Interface:  req.Interface,
			FrameType:  req.FrameType,
			Channel:    req.Channel,
			SSIDPrefix: req.SSIDPrefix,
			NumBSS:     req.NumBSS,
			FrameCount: req.FrameCount,
			DelayMS:    req.DelayMS,
		})
		mu.Unlock()
		if err != nil {
			writeRouterError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.FrameResponse{PID: pid})
	})

	return r
}

// decodeJSON enforces the JSON content type and body limit, reporting
// errors itself. Returns false when the handler should bail.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}

// buildAPConfig translates the API payload into a validated AP config.
func buildAPConfig(req types.ConfigureRequest) (*hostapd.Config, error) {
	var opts []hostapd.Option
	if req.Mode != "" {
		opts = append(opts, hostapd.ModeOpt(hostapd.Mode(req.Mode)))
	}
	if req.Channel != 0 {
		opts = append(opts, hostapd.Channel(req.Channel))
	}
	if req.SSID != "" {
		opts = append(opts, hostapd.SSID(req.SSID))
	}
	if req.SSIDSuffix != "" {
		opts = append(opts, hostapd.SSIDSuffix(req.SSIDSuffix))
	}
	if req.Hidden {
		opts = append(opts, hostapd.Hidden())
	}
	if req.Passphrase != "" {
		opts = append(opts, hostapd.Security(&hostapd.WPAPSKConfig{Passphrase: req.Passphrase}))
	}
	return hostapd.NewConfig(opts...)
}
