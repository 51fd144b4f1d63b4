package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/access"
	"github.com/linesmerrill/docket-api/api"
	"github.com/linesmerrill/docket-api/archive"
	"github.com/linesmerrill/docket-api/chat"
	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/sessions"
	"github.com/linesmerrill/docket-api/storage"
	"github.com/linesmerrill/docket-api/tokens"
)

// App stores the router and its collaborators, so they can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	Cases     databases.CaseDatabase
	Blobs     storage.BlobStore
	Sessions  *sessions.Manager
	Archive   *archive.Manager
	Issuer    *tokens.Issuer
	Admin     *api.Admin
	Relay     *chat.SocketIORelay
	Hub       *chat.Hub
	Publisher chat.Publisher

	dbHelper databases.DatabaseHelper
	client   databases.ClientHelper
	closers  []func() error
}

// New creates a new mux router and all the routes. Collaborators left nil get
// in-process defaults.
func (a *App) New() *mux.Router {
	a.defaults()

	cc := CourtCase{
		DB:       a.Cases,
		Archive:  a.Archive,
		Sessions: a.Sessions,
		Guard:    access.Guard{Sessions: a.Sessions},
		Issuer:   a.Issuer,
		Chat: chat.Service{
			DB:        a.Cases,
			Publisher: a.Publisher,
			Mode:      a.Config.ChatHistoryMode,
			Limit:     a.Config.ChatHistoryLimit,
		},
	}
	adm := Admin{DB: a.Cases, Archive: a.Archive, Blobs: a.Blobs}
	session := api.RequireSession(a.Sessions)

	r := mux.NewRouter()
	r.Use(api.RequestLogger)

	// healthchex
	r.HandleFunc("/health", api.HealthCheckHandler)

	r.HandleFunc("/download/{docket}/{side}/{file}", cc.DownloadHandler).Methods("GET")
	if a.Relay != nil {
		r.PathPrefix("/socket.io/").Handler(a.Relay.Handler())
	}
	if a.Hub != nil {
		r.Handle("/ws/chat", a.Hub)
	}

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.HandleFunc("/case", cc.CreateCaseHandler).Methods("POST")
	apiCreate.HandleFunc("/case", cc.CaseHandler).Methods("GET")
	apiCreate.Handle("/case/{person}", session(http.HandlerFunc(cc.CaseByPersonHandler))).Methods("GET")
	apiCreate.HandleFunc("/join", cc.JoinHandler).Methods("POST")
	apiCreate.HandleFunc("/join", cc.JoinStatusHandler).Methods("GET")
	apiCreate.HandleFunc("/upload", cc.UploadHandler).Methods("POST")
	apiCreate.HandleFunc("/viewall", cc.ViewAllHandler).Methods("GET")
	apiCreate.Handle("/seal", session(http.HandlerFunc(cc.SealHandler))).Methods("PUT")
	apiCreate.Handle("/close", session(http.HandlerFunc(cc.CloseHandler))).Methods("PUT")
	apiCreate.Handle("/remove", session(http.HandlerFunc(cc.RemoveHandler))).Methods("DELETE")
	apiCreate.Handle("/chat", session(http.HandlerFunc(cc.ChatHandler))).Methods("POST")

	apiCreate.Handle("/admin/token", a.Admin.Middleware(http.HandlerFunc(a.Admin.CreateToken))).Methods("POST")
	apiCreate.Handle("/admin/token", a.Admin.Middleware(http.HandlerFunc(a.Admin.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/admin/cases", a.Admin.Middleware(http.HandlerFunc(adm.CasesHandler))).Methods("GET")
	apiCreate.Handle("/admin/cases", a.Admin.Middleware(http.HandlerFunc(adm.DeleteAllHandler))).Methods("DELETE")
	apiCreate.Handle("/admin/case", a.Admin.Middleware(http.HandlerFunc(adm.DeleteCaseHandler))).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		config.ErrorStatus("page not found", http.StatusNotFound, w, models.ErrNotFound)
	})
	return r
}

func (a *App) defaults() {
	if a.Issuer == nil {
		a.Issuer = tokens.NewIssuer()
	}
	if a.Sessions == nil {
		a.Sessions = sessions.NewManager(sessions.NewMemoryStore(), a.Config.SessionSecret, a.Config.SessionTTL)
	}
	if a.Publisher == nil {
		var pubs chat.Fanout
		if a.Relay != nil {
			pubs = append(pubs, a.Relay)
		}
		if a.Hub != nil {
			pubs = append(pubs, a.Hub)
		}
		a.Publisher = pubs
	}
	if a.Archive == nil {
		var opts []archive.Option
		if a.Config.SerializeDocketWrites {
			opts = append(opts, archive.WithDocketLocks(archive.NewLocks()))
		}
		a.Archive = archive.NewManager(a.Cases, a.Blobs, a.Sessions, opts...)
	}
	if a.Admin == nil {
		a.Admin = api.NewAdmin(context.Background(), a.Config.AdminUser, a.Config.AdminPasswordHash)
	}
}

// Initialize is invoked by main to connect with the database, the blob store
// and the session store, and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	zap.S().Info("docket-api has connected to the database")

	a.Cases = databases.NewCaseDatabase(a.dbHelper)
	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()
	if err := a.Cases.EnsureIndexes(ctx); err != nil {
		zap.S().Errorw("failed to create case indexes", "error", err)
		return err
	}

	if err := a.initializeBlobs(ctx); err != nil {
		return err
	}
	if err := a.initializeSessions(); err != nil {
		return err
	}

	a.Relay = chat.NewSocketIORelay()
	a.Relay.Serve()
	a.closers = append(a.closers, a.Relay.Close)
	a.Hub = chat.NewHub()

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeBlobs(ctx context.Context) error {
	switch strings.ToLower(a.Config.StorageDriver) {
	case "", "disk":
		disk, err := storage.NewDisk(a.Config.CasesDir)
		if err != nil {
			zap.S().Errorw("failed to open case directory", "dir", a.Config.CasesDir, "error", err)
			return err
		}
		a.Blobs = disk
	case "minio", "s3":
		m, err := storage.NewMinio(storage.MinioConfig{
			Endpoint:  a.Config.S3Endpoint,
			Region:    a.Config.S3Region,
			Bucket:    a.Config.S3Bucket,
			AccessKey: a.Config.S3AccessKey,
			SecretKey: a.Config.S3SecretKey,
			UseSSL:    a.Config.S3UseSSL,
		})
		if err != nil {
			zap.S().Errorw("failed to create minio client", "error", err)
			return err
		}
		if err := m.EnsureBucket(ctx, a.Config.S3Region); err != nil {
			zap.S().Errorw("failed to ensure bucket", "bucket", a.Config.S3Bucket, "error", err)
			return err
		}
		a.Blobs = m
	default:
		return fmt.Errorf("unknown storage driver %q", a.Config.StorageDriver)
	}
	zap.S().Infow("blob store ready", "driver", a.Config.StorageDriver)
	return nil
}

func (a *App) initializeSessions() error {
	var store sessions.Store
	switch strings.ToLower(a.Config.SessionDriver) {
	case "", "memory":
		store = sessions.NewMemoryStore()
	case "redis":
		rs, err := sessions.NewRedisStore(a.Config.RedisURL)
		if err != nil {
			zap.S().Errorw("failed to connect to redis", "error", err)
			return err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	default:
		return fmt.Errorf("unknown session driver %q", a.Config.SessionDriver)
	}
	a.Sessions = sessions.NewManager(store, a.Config.SessionSecret, a.Config.SessionTTL)
	a.Sessions.Secure = a.Config.Env == "production"
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Close releases the connections opened by Initialize
func (a *App) Close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			zap.S().Warnw("failed to close resource", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}
