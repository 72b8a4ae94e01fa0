package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timunlipat/dapur-segar/pkg/cart"
	cartfile "github.com/timunlipat/dapur-segar/pkg/cart/file"
	cartmem "github.com/timunlipat/dapur-segar/pkg/cart/memory"
	cartpg "github.com/timunlipat/dapur-segar/pkg/cart/postgres"
	cartredis "github.com/timunlipat/dapur-segar/pkg/cart/redis"
	"github.com/timunlipat/dapur-segar/pkg/logger"
)

var (
	redisClient *goredis.Client
	log         *zap.Logger
	tracer      trace.Tracer
	carts       *registry
	newSnapshot func(sessionID string) cart.Snapshot
)

// @title Dapur Segar Cart API
// @version 1.0
// @description Session-scoped shopping cart state and checkout totals
// @host localhost:8443
// @BasePath /
func main() {
	var err error
	log, err = logger.New("dapur-segar")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	exp, _ := stdouttrace.New(stdouttrace.WithPrettyPrint())
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())
	tracer = tp.Tracer("dapur-segar")

	redisClient = goredis.NewClient(&goredis.Options{Addr: os.Getenv("REDIS_ADDR")})

	newSnapshot, err = snapshotFactory()
	if err != nil {
		log.Error("configure cart backend", zap.Error(err))
		os.Exit(1)
	}
	carts = newRegistry(sessionTTL)

	r := mux.NewRouter()
	r.Use(traceMiddleware)
	r.HandleFunc("/login", loginHandler).Methods(http.MethodPost)

	api := r.PathPrefix("/cart").Subrouter()
	api.Use(authMiddleware)
	api.HandleFunc("", getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/items", addItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", updateItemHandler).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}", removeItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/visibility", visibilityHandler).Methods(http.MethodPut)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	log.Info("listening", zap.String("addr", ":8443"))
	if err := http.ListenAndServeTLS(":8443", "certs/server.crt", "certs/server.key", r); err != nil {
		log.Error("server closed", zap.Error(err))
	}
}

// snapshotFactory picks the persistence backend from the environment.
func snapshotFactory() (func(string) cart.Snapshot, error) {
	switch backend := os.Getenv("CART_BACKEND"); backend {
	case "", "file":
		dir := os.Getenv("CART_DATA_DIR")
		if dir == "" {
			dir = "data"
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create cart data dir: %w", err)
		}
		return func(sid string) cart.Snapshot {
			return cartfile.New(filepath.Join(dir, sid+".json"))
		}, nil
	case "redis":
		return func(sid string) cart.Snapshot {
			return cartredis.New(redisClient, sid)
		}, nil
	case "postgres":
		db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if _, err := db.Exec("CREATE TABLE IF NOT EXISTS carts (session_key TEXT PRIMARY KEY, data TEXT)"); err != nil {
			return nil, fmt.Errorf("create carts table: %w", err)
		}
		return func(sid string) cart.Snapshot {
			return cartpg.New(db, sid)
		}, nil
	case "memory":
		return func(string) cart.Snapshot {
			return cartmem.New()
		}, nil
	default:
		return nil, fmt.Errorf("unknown CART_BACKEND %q", backend)
	}
}

// registry hands out one cart store per browsing session, each seeded
// from that session's persisted snapshot on first use. Stores idle for
// the session TTL are evicted so the registry tracks the live sessions
// in redis rather than every login ever made.
type registry struct {
	mu     sync.Mutex
	stores map[string]*sessionEntry
	ttl    time.Duration
}

type sessionEntry struct {
	store    *cart.Store
	lastSeen time.Time
}

func newRegistry(ttl time.Duration) *registry {
	r := &registry{stores: make(map[string]*sessionEntry), ttl: ttl}
	go r.sweep()
	return r
}

func (r *registry) forSession(ctx context.Context, sid string) *cart.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[sid]
	if !ok {
		s := cart.New(ctx, newSnapshot(sid), log.With(zap.String("session", sid)))
		s.Subscribe(notifyAdd)
		e = &sessionEntry{store: s}
		r.stores[sid] = e
	}
	e.lastSeen = time.Now()
	return e.store
}

func (r *registry) sweep() {
	for range time.Tick(r.ttl) {
		r.evictExpired(time.Now().Add(-r.ttl))
	}
}

// evictExpired drops stores not touched since the cutoff.
func (r *registry) evictExpired(cutoff time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, e := range r.stores {
		if e.lastSeen.Before(cutoff) {
			delete(r.stores, sid)
		}
	}
}

// notifyAdd feeds the confirmation/undo collaborator after each add;
// undo is the collaborator calling DELETE /cart/items/{id}.
func notifyAdd(ev cart.Event) {
	if ev.Op != cart.OpAdd {
		return
	}
	log.Info("item added to cart",
		zap.String("id", string(ev.Line.ID)),
		zap.String("name", ev.Line.Name),
		zap.Float64("price", ev.Line.Price),
		zap.String("unit", ev.Line.Unit),
		zap.String("image", ev.Line.Image))
}

// sessionTTL bounds both the redis session keys and the cart store
// registry; an idle session loses its in-memory store when it expires.
const sessionTTL = time.Hour

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	sid := uuid.NewString()
	if err := redisClient.Set(r.Context(), "session:"+sid, req.Username, sessionTTL).Err(); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", Expires: time.Now().Add(sessionTTL), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

type ctxKey string

const sessionCtxKey ctxKey = "session"

// authMiddleware ensures a valid session exists.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := redisClient.Get(r.Context(), "session:"+c.Value).Result()
		if err != nil || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey, c.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionCtxKey).(string)
	return sid
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cartView is the read model handed to the presentation layer.
type cartView struct {
	Items  []cart.Line `json:"items"`
	IsOpen bool        `json:"isOpen"`
	Totals cart.Totals `json:"totals"`
}

func writeCart(w http.ResponseWriter, status int, s *cart.Store) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(cartView{Items: s.Lines(), IsOpen: s.IsOpen(), Totals: s.Totals()})
}

// getCartHandler returns the session's cart lines, totals and panel state.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart [get]
func getCartHandler(w http.ResponseWriter, r *http.Request) {
	s := carts.forSession(r.Context(), sessionID(r))
	writeCart(w, http.StatusOK, s)
}

// addItemHandler adds a product to the session cart, merging quantities
// for a product already present.
// @Summary Add item
// @Accept json
// @Produce json
// @Param product body cart.Product true "Product"
// @Success 201 {object} cartView
// @Security ApiKeyAuth
// @Router /cart/items [post]
func addItemHandler(w http.ResponseWriter, r *http.Request) {
	var p cart.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := carts.forSession(r.Context(), sessionID(r))
	if err := s.AddToCart(r.Context(), p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeCart(w, http.StatusCreated, s)
}

// quantityRequest carries the new quantity for a cart line.
type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// updateItemHandler sets a line's quantity; below 1 removes the line.
// @Summary Update quantity
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param quantity body quantityRequest true "Quantity"
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart/items/{id} [put]
func updateItemHandler(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := carts.forSession(r.Context(), sessionID(r))
	s.UpdateQuantity(r.Context(), cart.ID(mux.Vars(r)["id"]), req.Quantity)
	writeCart(w, http.StatusOK, s)
}

// removeItemHandler deletes a line from the session cart.
// @Summary Remove item
// @Param id path string true "Product ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /cart/items/{id} [delete]
func removeItemHandler(w http.ResponseWriter, r *http.Request) {
	s := carts.forSession(r.Context(), sessionID(r))
	s.RemoveItem(r.Context(), cart.ID(mux.Vars(r)["id"]))
	w.WriteHeader(http.StatusNoContent)
}

// visibilityRequest carries the requested panel state.
type visibilityRequest struct {
	Open bool `json:"open"`
}

// visibilityHandler opens or closes the cart panel.
// @Summary Set cart visibility
// @Accept json
// @Produce json
// @Param visibility body visibilityRequest true "Visibility"
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart/visibility [put]
func visibilityHandler(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := carts.forSession(r.Context(), sessionID(r))
	s.SetOpen(req.Open)
	writeCart(w, http.StatusOK, s)
}
