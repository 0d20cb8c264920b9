package httpapi

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xtevenx/sjudge/catalog"
	"github.com/xtevenx/sjudge/config"
	"github.com/xtevenx/sjudge/queue"
	"github.com/xtevenx/sjudge/store"
)

// NewRouter constructs the Gin engine with every route wired.
func NewRouter(cfg config.Config, cookieStore *sessions.CookieStore, authService AuthService, db *pgxpool.Pool, redisClient *redis.Client) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, cookieStore))
	r.Use(CSRFMiddleware(cfg, cookieStore))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userRepo := store.NewPgUserRepository(db)
	exerciseRepo := store.NewPgExerciseRepository(db)
	subRepo := store.NewPgSubmissionRepository(db)
	noticeRepo := store.NewPgNoticeRepository(db)
	rq := queue.New(redisClient)
	metricsService := store.NewMetricsService(redisClient)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) { loginHandler(c, cfg, cookieStore, authService) })
		api.POST("/auth/logout", func(c *gin.Context) { logoutHandler(c, cfg) })

		api.GET("/users/me", func(c *gin.Context) { meHandler(c, userRepo, subRepo) })
		api.GET("/users/:username", func(c *gin.Context) { userHandler(c, userRepo, subRepo) })

		api.GET("/exercises", func(c *gin.Context) { listExercisesHandler(c, exerciseRepo) })
		api.GET("/exercises/:id", func(c *gin.Context) { exerciseDetailHandler(c, exerciseRepo) })

		api.POST("/submissions", func(c *gin.Context) { createSubmissionHandler(c, cfg, exerciseRepo, subRepo, rq) })
		api.GET("/submissions/:id", func(c *gin.Context) { submissionDetailHandler(c, subRepo) })
		api.GET("/submissions", func(c *gin.Context) { listSubmissionsHandler(c, userRepo, subRepo) })

		api.GET("/notices", func(c *gin.Context) { listNoticesHandler(c, noticeRepo) })
		api.GET("/notices/:id", func(c *gin.Context) { noticeDetailHandler(c, noticeRepo) })

		admin := api.Group("/admin")
		admin.Use(AdminOnly())
		{
			admin.POST("/exercises", func(c *gin.Context) { importExerciseHandler(c, exerciseRepo) })
			admin.GET("/exercises/template", exerciseTemplateHandler)
			admin.GET("/users", func(c *gin.Context) { listUsersHandler(c, userRepo) })
			admin.GET("/system-status", func(c *gin.Context) { systemStatusHandler(c, metricsService, startedAt) })
			admin.POST("/notices", func(c *gin.Context) { createNoticeHandler(c, noticeRepo) })
			admin.PUT("/notices/:id", func(c *gin.Context) { updateNoticeHandler(c, noticeRepo) })
			admin.DELETE("/notices/:id", func(c *gin.Context) { deleteNoticeHandler(c, noticeRepo) })
		}
	}

	return r
}

func currentSession(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return sess
}

func requireLogin(c *gin.Context) (string, bool) {
	sess := currentSession(c)
	username, _ := sess.Values["username"].(string)
	if strings.TrimSpace(username) == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return "", false
	}
	return username, true
}

func loginHandler(c *gin.Context, cfg config.Config, cookieStore *sessions.CookieStore, authService AuthService) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
		return
	}

	user, err := authService.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "username or password is incorrect")
		return
	}

	session, err := cookieStore.Get(c.Request, sessionName)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
		return
	}

	session.Values = map[interface{}]interface{}{}
	session.Values["username"] = user.Username
	session.Values["user_id"] = user.ID
	session.Values["role"] = user.Role
	applySessionOptions(cfg, session)

	if err := session.Save(c.Request, c.Writer); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{"username": user.Username, "role": user.Role}})
}

func logoutHandler(c *gin.Context, cfg config.Config) {
	sess := currentSession(c)
	if sess == nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return
	}
	sess.Values = map[interface{}]interface{}{}
	applySessionOptions(cfg, sess)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request, c.Writer); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
		return
	}
	c.Status(http.StatusNoContent)
}

func meHandler(c *gin.Context, userRepo store.UserRepository, subRepo store.SubmissionRepository) {
	username, ok := requireLogin(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	u, err := userRepo.FindByUsername(ctx, username)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "user does not exist")
		return
	}
	subCount, err := subRepo.CountByUser(ctx, u.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to count submissions")
		return
	}
	solvedCount, err := subRepo.CountSolvedExercisesByUser(ctx, u.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to count solved exercises")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":         u.Username,
		"role":             u.Role,
		"solved_count":     solvedCount,
		"submission_count": subCount,
		"created_at":       u.CreatedAt,
	})
}

func userHandler(c *gin.Context, userRepo store.UserRepository, subRepo store.SubmissionRepository) {
	if _, ok := requireLogin(c); !ok {
		return
	}

	ctx := c.Request.Context()
	u, err := userRepo.FindByUsername(ctx, c.Param("username"))
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	subCount, err := subRepo.CountByUser(ctx, u.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to count submissions")
		return
	}
	solvedCount, err := subRepo.CountSolvedExercisesByUser(ctx, u.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to count solved exercises")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":         u.Username,
		"solved_count":     solvedCount,
		"submission_count": subCount,
		"created_at":       u.CreatedAt,
	})
}

func listExercisesHandler(c *gin.Context, exerciseRepo store.ExerciseRepository) {
	if _, ok := requireLogin(c); !ok {
		return
	}
	list, err := exerciseRepo.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list exercises")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercises": list})
}

func exerciseDetailHandler(c *gin.Context, exerciseRepo store.ExerciseRepository) {
	if _, ok := requireLogin(c); !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid exercise id")
		return
	}
	detail, err := exerciseRepo.FindDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "exercise not found")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func createSubmissionHandler(c *gin.Context, cfg config.Config, exerciseRepo store.ExerciseRepository, subRepo store.SubmissionRepository, rq queue.Client) {
	username, ok := requireLogin(c)
	if !ok {
		return
	}

	var req struct {
		ExerciseID int64  `json:"exercise_id"`
		Filename   string `json:"filename"`
		Source     string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
		return
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Filename) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "filename and source are required")
		return
	}

	ctx := c.Request.Context()
	exists, err := exerciseRepo.ExistsAndPublic(ctx, req.ExerciseID)
	if err != nil || !exists {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "exercise not found")
		return
	}

	sess := currentSession(c)
	var userID int64
	if uid, ok := sess.Values["user_id"].(int64); ok {
		userID = uid
	}

	dir := filepath.Join(cfg.SubmissionDir, username, strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to prepare submission directory")
		return
	}
	sourcePath := filepath.Join(dir, filepath.Base(req.Filename))
	if err := os.WriteFile(sourcePath, []byte(req.Source), 0o644); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to store submission")
		return
	}

	id, createdAt, err := subRepo.Create(ctx, userID, req.ExerciseID, sourcePath)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create submission")
		return
	}

	if err := rq.Enqueue(ctx, queue.PendingKey, strconv.FormatInt(id, 10)); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to enqueue submission")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "pending", "created_at": createdAt})
}

func submissionDetailHandler(c *gin.Context, subRepo store.SubmissionRepository) {
	if _, ok := requireLogin(c); !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid submission id")
		return
	}
	view, err := subRepo.FindWithResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "submission not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

func listSubmissionsHandler(c *gin.Context, userRepo store.UserRepository, subRepo store.SubmissionRepository) {
	username, ok := requireLogin(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := userRepo.FindByUsername(ctx, username)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "user does not exist")
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)
	var exerciseID *int64
	if v := c.Query("exercise_id"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			exerciseID = &parsed
		}
	}

	items, total, err := subRepo.ListByUser(ctx, u.ID, exerciseID, page, perPage)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list submissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": items, "total": total, "page": page, "per_page": perPage})
}

func exerciseTemplateHandler(c *gin.Context) {
	data, err := catalog.BuildExerciseTemplateZip()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to build template")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=exercise-template.zip")
	c.Data(http.StatusOK, "application/zip", data)
}

func importExerciseHandler(c *gin.Context, exerciseRepo store.ExerciseRepository) {
	file, err := c.FormFile("package")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "missing package upload")
		return
	}
	opened, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read upload")
		return
	}
	defer opened.Close()

	data, err := io.ReadAll(opened)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read upload")
		return
	}

	pkg, err := catalog.ParsePackage(data)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	isPublic := c.PostForm("public") != "false"
	id, err := exerciseRepo.CreateFromPackage(c.Request.Context(), pkg, isPublic)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist exercise")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "slug": pkg.Slug})
}

func listUsersHandler(c *gin.Context, userRepo store.UserRepository) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 50)
	items, total, err := userRepo.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": items, "total": total, "page": page, "per_page": perPage})
}

func systemStatusHandler(c *gin.Context, metricsService *store.MetricsService, startedAt time.Time) {
	status, err := store.CollectSystemStatus(c.Request.Context(), metricsService, startedAt)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to collect system status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func listNoticesHandler(c *gin.Context, noticeRepo store.NoticeRepository) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)
	items, total, err := noticeRepo.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list notices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": items, "total": total, "page": page, "per_page": perPage})
}

func noticeDetailHandler(c *gin.Context, noticeRepo store.NoticeRepository) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notice id")
		return
	}
	n, err := noticeRepo.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "notice not found")
		return
	}
	c.JSON(http.StatusOK, n)
}

func createNoticeHandler(c *gin.Context, noticeRepo store.NoticeRepository) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "title is required")
		return
	}
	n, err := noticeRepo.Create(c.Request.Context(), req.Title, req.Body)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create notice")
		return
	}
	c.JSON(http.StatusCreated, n)
}

func updateNoticeHandler(c *gin.Context, noticeRepo store.NoticeRepository) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notice id")
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "title is required")
		return
	}
	n, err := noticeRepo.Update(c.Request.Context(), id, req.Title, req.Body)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "notice not found")
		return
	}
	c.JSON(http.StatusOK, n)
}

func deleteNoticeHandler(c *gin.Context, noticeRepo store.NoticeRepository) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notice id")
		return
	}
	if err := noticeRepo.Delete(c.Request.Context(), id); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete notice")
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
