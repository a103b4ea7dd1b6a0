package api

import (
	"net/http"
	"strings"

	"blackjack-service/internal/middleware"
	"blackjack-service/internal/service"
	"blackjack-service/internal/service/game"
	"blackjack-service/internal/service/room"
	"blackjack-service/internal/service/wallet"
	"blackjack-service/internal/ws"
	pkgAuth "blackjack-service/pkg/auth"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Hub, services.Rooms)
	identity := middleware.PlayerIdentity(services.Hasher)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	apiGroup := r.Group("/api")
	apiGroup.Use(identity)
	{
		apiGroup.POST("/session", handler.CreateSession)
		apiGroup.GET("/debug/store", handler.DebugStore)

		apiGroup.POST("/rooms", middleware.PlayerRequired(), handler.CreateRoom)

		roomGroup := apiGroup.Group("/rooms/:roomId")
		{
			roomGroup.GET("", handler.GetRoom)
			roomGroup.GET("/balances", handler.RoomBalances)
			roomGroup.POST("/timeout", handler.ForceTimeout)

			acting := roomGroup.Group("")
			acting.Use(middleware.PlayerRequired())
			{
				acting.POST("", handler.RoomOp)
				acting.POST("/join", handler.JoinRoom)
				acting.POST("/action", handler.RoomAction)
				acting.POST("/bet", handler.SetBet)
				acting.POST("/insurance", handler.Insurance)
				acting.POST("/settings", handler.UpdateSettings)
				acting.POST("/heartbeat", handler.RoomHeartbeat)
			}
		}

		if services.Wallet != nil {
			profileGroup := apiGroup.Group("/profile")
			profileGroup.Use(middleware.AccountRequired())
			{
				profileGroup.GET("", handler.GetProfile)
				profileGroup.POST("", handler.UpsertProfile)
				profileGroup.GET("/balance", handler.GetBalance)
				profileGroup.POST("/heartbeat", handler.ProfileHeartbeat)
			}
		}
	}

	r.GET("/ws/rooms/:roomId", identity, wsHandler.HandleRoomWS)
}

type sessionBody struct {
	PlayerID string `json:"playerId" binding:"omitempty,max=64"`
}

type nameBody struct {
	Name string `json:"name" binding:"required"`
}

type opBody struct {
	Op string `json:"op" binding:"required"`
}

type actionBody struct {
	Action string `json:"action" binding:"required,oneof=hit stand double split leave"`
}

type betBody struct {
	Bet int64 `json:"bet" binding:"min=0,max=1000000000"`
}

type insuranceBody struct {
	Amount int64 `json:"amount" binding:"min=0,max=1000000000"`
}

type settingsBody struct {
	DeckCount    int  `json:"deckCount" binding:"min=0,max=6"`
	ShuffleAt    int  `json:"shuffleAt" binding:"min=0"`
	AutoContinue bool `json:"autoContinue"`
}

type profileBody struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Username string `json:"username" binding:"omitempty,max=64"`
}

func (h *Handler) player(c *gin.Context, name string) room.Player {
	return room.Player{
		TokenHash: middleware.TokenHash(c),
		Name:      name,
		AccountID: middleware.AccountID(c),
	}
}

func (h *Handler) state(c *gin.Context, g *game.Game) {
	c.Header("Cache-Control", "no-store")
	response.Success(c, game.ToClient(g, middleware.TokenHash(c)))
}

// CreateSession issues a signed player id for clients that would rather not
// mint their own token.
func (h *Handler) CreateSession(c *gin.Context) {
	var body sessionBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	playerID := strings.TrimSpace(body.PlayerID)
	if playerID == "" {
		playerID = uuid.NewString()
	}
	token, expireAt, err := pkgAuth.GenerateSessionToken(playerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{
		"token":     token,
		"playerId":  playerID,
		"expiresAt": expireAt,
	})
}

func (h *Handler) DebugStore(c *gin.Context) {
	response.Success(c, gin.H{"backend": h.services.StoreKind})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var body nameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrNameRequired)
		return
	}
	g, err := h.services.Rooms.CreateRoom(c.Request.Context(), h.player(c, body.Name))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{
		"roomId": g.ID,
		"state":  game.ToClient(g, middleware.TokenHash(c)),
	})
}

func (h *Handler) GetRoom(c *gin.Context) {
	g, err := h.services.Rooms.Get(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) RoomOp(c *gin.Context) {
	var body opBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.Op != "start" {
		response.FromError(c, appErr.ErrUnsupportedAction)
		return
	}
	g, err := h.services.Rooms.Start(c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var body nameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrNameRequired)
		return
	}
	g, err := h.services.Rooms.EnsureJoined(c.Request.Context(), c.Param("roomId"), h.player(c, body.Name))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) RoomAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrUnsupportedAction)
		return
	}

	ctx, roomID, tokenHash := c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c)
	rooms := h.services.Rooms
	var (
		g   *game.Game
		err error
	)
	switch body.Action {
	case "hit":
		g, err = rooms.Hit(ctx, roomID, tokenHash)
	case "stand":
		g, err = rooms.Stand(ctx, roomID, tokenHash)
	case "double":
		g, err = rooms.DoubleDown(ctx, roomID, tokenHash)
	case "split":
		g, err = rooms.Split(ctx, roomID, tokenHash)
	case "leave":
		g, err = rooms.Leave(ctx, roomID, tokenHash)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) SetBet(c *gin.Context) {
	var body betBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrInvalidWalletAmount)
		return
	}
	g, err := h.services.Rooms.SetBet(c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c), body.Bet)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) Insurance(c *gin.Context) {
	var body insuranceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrInvalidWalletAmount)
		return
	}
	g, err := h.services.Rooms.Insurance(c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c), body.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var body settingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	settings := game.Settings{
		DeckCount:    body.DeckCount,
		ShuffleAt:    body.ShuffleAt,
		AutoContinue: body.AutoContinue,
	}
	g, err := h.services.Rooms.UpdateSettings(c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c), settings)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) RoomHeartbeat(c *gin.Context) {
	if _, err := h.services.Rooms.Heartbeat(c.Request.Context(), c.Param("roomId"), middleware.TokenHash(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *Handler) ForceTimeout(c *gin.Context) {
	g, err := h.services.Rooms.ForceTimeout(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.state(c, g)
}

func (h *Handler) RoomBalances(c *gin.Context) {
	items, err := h.services.Rooms.Balances(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *Handler) GetProfile(c *gin.Context) {
	account, err := h.services.Wallet.GetProfile(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profileView(account.ID, account.Email, account.Username, account.Balance))
}

func (h *Handler) UpsertProfile(c *gin.Context) {
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.FromError(c, appErr.ErrInvalidProfile)
		return
	}
	account, err := h.services.Wallet.UpsertProfile(c.Request.Context(), middleware.AccountID(c), wallet.ProfileRequest{
		Email:    body.Email,
		Username: body.Username,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profileView(account.ID, account.Email, account.Username, account.Balance))
}

func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.services.Wallet.ReadBalance(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

func (h *Handler) ProfileHeartbeat(c *gin.Context) {
	credited, err := h.services.Wallet.Topup(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "credited": credited})
}

func profileView(id, email, username string, balance int64) gin.H {
	return gin.H{
		"userId":   id,
		"email":    email,
		"username": username,
		"balance":  balance,
	}
}
