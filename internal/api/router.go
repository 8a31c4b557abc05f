package api

import (
	"context"
	"net/http"

	"chatter/internal/audit"
	"chatter/internal/auth"
	"chatter/internal/config"
	"chatter/internal/friend"
	"chatter/internal/group"
	"chatter/internal/message"
	"chatter/internal/middleware"
	"chatter/internal/search"
	"chatter/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the router wires its handlers from. Gateway and
// Metrics are optional.
type Deps struct {
	DB      *gorm.DB
	Config  config.Config
	Tokens  *auth.TokenManager
	Gateway Gateway
	Metrics http.Handler
	Log     *zap.Logger
}

type Router struct {
	deps Deps
	am   *auth.AuthMiddleware

	authLimiter *middleware.IPRateLimiter
	apiLimiter  *middleware.IPRateLimiter

	ah  *AuthHandlers
	uh  *UserHandlers
	fh  *FriendHandlers
	gh  *GroupHandlers
	mh  *MessageHandlers
	sh  *SearchHandlers
	adh *AuditHandlers
}

// NewRouter builds the services and handlers. ctx bounds the rate limiter
// cleanup goroutines.
func NewRouter(ctx context.Context, deps Deps) *Router {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	var notifier Notifier = nopNotifier{}
	if deps.Gateway != nil {
		notifier = deps.Gateway
	}

	db := deps.DB
	auditService := audit.NewAuditService(db)
	groupService := group.NewGroupService(db, auditService)
	userService := user.NewUserService(db)
	authService := auth.NewAuthService(db, deps.Config.Auth.RefreshTokenTTL)

	authHandlers := NewAuthHandlers(authService, deps.Tokens, deps.Config.Auth.SecureCookies, deps.Log)

	return &Router{
		deps:        deps,
		am:          auth.NewAuthMiddleware(deps.Tokens, authService),
		authLimiter: middleware.NewIPRateLimiter(ctx, middleware.FromConfig(deps.Config.RateLimit.Auth)),
		apiLimiter:  middleware.NewIPRateLimiter(ctx, middleware.FromConfig(deps.Config.RateLimit.API)),
		ah:          authHandlers,
		uh:          NewUserHandlers(userService, authHandlers, deps.Log),
		fh:          NewFriendHandlers(friend.NewFriendService(db), userService, notifier, deps.Log),
		gh:          NewGroupHandlers(groupService),
		mh:          NewMessageHandlers(message.NewMessageService(db, groupService), notifier),
		sh:          NewSearchHandlers(search.NewSearchService(db)),
		adh:         NewAuditHandlers(auditService),
	}
}

// Engine returns a gin engine with the shared middleware and every route.
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(r.deps.Log),
		middleware.RequestLogger(r.deps.Log),
		middleware.CORS(r.deps.Config.CORS.AllowedOrigins),
	)
	r.RegisterRoutes(engine)
	return engine
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	router.GET("/hc", HealthCheckHandler)
	if r.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(r.deps.Metrics))
	}
	if gw := r.deps.Gateway; gw != nil {
		router.GET("/ws", r.am.OptionalAuth(), gw.ServeWS)
		router.GET("/ws/info", gw.Info)
	}

	{
		authGroup := router.Group("/api/auth")
		authGroup.Use(middleware.RateLimitMiddleware(r.authLimiter))
		authGroup.POST("/sign-up", r.ah.SignUpHandler)
		authGroup.POST("/login", r.ah.LoginHandler)
		authGroup.POST("/logout", r.ah.LogoutHandler)
		authGroup.POST("/refresh-token", r.ah.RefreshTokenHandler)

		authGroup.GET("/current-user", r.am.RequireAuth(), r.uh.CurrentUserHandler)
		authGroup.PUT("/update-profile", r.am.RequireAuth(), r.uh.UpdateProfileHandler)
		authGroup.DELETE("/delete-account", r.am.RequireAuth(), r.uh.DeleteAccountHandler)
	}

	protected := router.Group("/api")
	protected.Use(middleware.RateLimitMiddleware(r.apiLimiter), r.am.RequireAuth())

	{
		friends := protected.Group("/friend-requests")
		friends.POST("/send/:receiverId", r.fh.SendRequestHandler)
		friends.GET("", r.fh.ListReceivedHandler)
		friends.GET("/sent", r.fh.ListSentHandler)
		friends.GET("/friends", r.fh.FriendsHandler)
		friends.PUT("/:requestId", r.fh.HandleRequestHandler)
	}

	{
		groups := protected.Group("/group")
		groups.POST("/create", r.gh.CreateGroupHandler)
		groups.GET("", r.gh.ListGroupsHandler)
		groups.PUT("/:groupId", r.gh.UpdateGroupHandler)
		groups.POST("/:groupId/members", r.gh.AddMembersHandler)
		groups.POST("/leave/:groupId", r.gh.LeaveGroupHandler)
		groups.DELETE("/:groupId/members/:memberId", r.gh.RemoveMemberHandler)
		groups.DELETE("/:groupId", r.gh.DeleteGroupHandler)
		groups.GET("/:groupId/audit", r.adh.GetGroupAuditLogsHandler)
	}

	{
		groupMessages := protected.Group("/group-messages")
		groupMessages.POST("/send/:groupId", r.mh.SendGroupMessageHandler)
		groupMessages.GET("/chat/:groupId", r.mh.GroupMessagesHandler)
	}

	{
		messages := protected.Group("/messages")
		messages.GET("/users", r.mh.SidebarUsersHandler)
		messages.GET("/:id", r.mh.ConversationHandler)
		messages.POST("/send/:id", r.mh.SendMessageHandler)
	}

	protected.GET("/users/search", r.sh.SearchUsersHandler)
}

func HealthCheckHandler(c *gin.Context) {
	c.String(http.StatusOK, "Running")
}
