package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"usof/database"
	"usof/database/postgres"
	"usof/database/sqlite"
	"usof/forum"

	"github.com/gorilla/mux"
)

type App struct {
	config  *Config
	db      database.Database
	model   *Model
	ledger  *Ledger
	cascade *Cascade
	guard   *PostGuard
	files   FileStore
}

func NewApp() *App {
	return &App{}
}

func (a *App) Run(args []string) {
	if os.Getenv("GO_ENV") != "" {
		log.SetFlags(0)
	} else {
		log.SetFlags(log.Ldate | log.Ltime | log.LUTC)
	}

	a.config = NewConfig()
	if err := a.config.Load(args); err != nil {
		panic(err)
	}

	window, err := time.ParseDuration(a.config.PostBlockExpire)
	if err != nil {
		log.Fatal(err)
	}
	a.guard = NewPostGuard(window)

	var db database.Database
	switch a.config.Database {
	case "postgres":
		db = postgres.New()
	default:
		db = sqlite.New()
	}
	if err := db.Open(a.config.Database, a.config.Dsn); err != nil {
		log.Fatal(err)
	}
	a.db = db
	a.model = NewModel(db)
	a.ledger = NewLedger(db)
	a.cascade = NewCascade(db)
	a.files = NewDiskStore(a.config.UploadsDir)

	http.Handle("/", a.router())

	port := os.Getenv("PORT")
	if port == "" {
		port = a.config.Server
	}

	log.Printf("Starting server at %s", port)
	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func (a *App) router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/posts", appHandler(a.listPostsHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/posts", appHandler(a.createPostHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/posts/{post_id}", appHandler(a.getPostHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/posts/{post_id}", appHandler(a.updatePostHandler).ServeHTTP).Methods("PATCH")
	api.HandleFunc("/posts/{post_id}", appHandler(a.deletePostHandler).ServeHTTP).Methods("DELETE")
	api.HandleFunc("/posts/{post_id}/categories", appHandler(a.getPostCategoriesHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/posts/{post_id}/comments", appHandler(a.getPostCommentsHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/posts/{post_id}/comments", appHandler(a.createCommentHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/posts/{post_id}/comments/{comment_id}/status", appHandler(a.updateCommentStatusHandler).ServeHTTP).Methods("PATCH")
	api.HandleFunc("/posts/{post_id}/like", appHandler(a.getPostLikesHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/posts/{post_id}/like", appHandler(a.likePostHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/posts/{post_id}/like", appHandler(a.unlikePostHandler).ServeHTTP).Methods("DELETE")

	api.HandleFunc("/comments/{comment_id}", appHandler(a.getCommentHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/comments/{comment_id}", appHandler(a.updateCommentHandler).ServeHTTP).Methods("PATCH")
	api.HandleFunc("/comments/{comment_id}", appHandler(a.deleteCommentHandler).ServeHTTP).Methods("DELETE")
	api.HandleFunc("/comments/{comment_id}/like", appHandler(a.getCommentLikesHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/comments/{comment_id}/like", appHandler(a.likeCommentHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/comments/{comment_id}/like", appHandler(a.unlikeCommentHandler).ServeHTTP).Methods("DELETE")

	api.HandleFunc("/categories", appHandler(a.listCategoriesHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/categories", appHandler(a.createCategoryHandler).ServeHTTP).Methods("POST")
	api.HandleFunc("/categories/{category_id}", appHandler(a.getCategoryHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/categories/{category_id}", appHandler(a.updateCategoryHandler).ServeHTTP).Methods("PATCH")
	api.HandleFunc("/categories/{category_id}", appHandler(a.deleteCategoryHandler).ServeHTTP).Methods("DELETE")
	api.HandleFunc("/categories/{category_id}/posts", appHandler(a.categoryPostsHandler).ServeHTTP).Methods("GET")

	api.HandleFunc("/users", appHandler(a.listUsersHandler).ServeHTTP).Methods("GET")
	api.HandleFunc("/users/{user_id}", appHandler(a.getUserHandler).ServeHTTP).Methods("GET")

	r.HandleFunc("/feed.xml", appHandler(a.feedHandler).ServeHTTP).Methods("GET")
	r.HandleFunc("/sitemap.xml", appHandler(a.sitemapHandler).ServeHTTP).Methods("GET")

	// Stored post images
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.config.UploadsDir))))

	return r
}

type listResponse struct {
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
	Prev  string      `json:"prev,omitempty"`
	Next  string      `json:"next,omitempty"`
	Items interface{} `json:"items"`
}

type scoreResponse struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}

func muxID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, forum.ErrInvalidInput
	}
	return id, nil
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func nonEmpty(s string, min, max int) bool {
	n := len(strings.TrimSpace(s))
	return n >= min && n <= max
}
