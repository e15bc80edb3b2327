package api

import (
	"net/http"

	authdelivery "hyperagent/internal/auth/delivery"
	clsdelivery "hyperagent/internal/classification/delivery"
	ingdelivery "hyperagent/internal/ingestion/delivery"
	msgdelivery "hyperagent/internal/messaging/delivery"
	oppdelivery "hyperagent/internal/opportunity/delivery"
	trdelivery "hyperagent/internal/transcript/delivery"
	"hyperagent/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, app *App) {
	cfg := app.Config
	authHandler := authdelivery.NewAuthHandler(app.Auth, app.Logger)
	oppHandler := oppdelivery.NewOpportunityHandler(app.Opportunities, app.Goals, app.Logger)
	ingestionHandler := ingdelivery.NewIngestionHandler(app.Ingestion, app.Logger)
	classificationHandler := clsdelivery.NewClassificationHandler(app.Sweeper, app.Logger)
	messagingHandler := msgdelivery.NewMessagingHandler(app.Messaging, app.Logger)
	transcriptHandler := trdelivery.NewTranscriptHandler(app.Transcripts, app.Logger)
	settingsHandler := NewSettingsHandler(app.Settings, app.AI)

	requireAuth := authdelivery.AuthMiddleware(app.Auth)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Public ingestion entry points
		api.POST("/widget/submit", ingestionHandler.SubmitWidget)
		api.POST("/webhooks/mailgun", ingestionHandler.MailgunWebhook)

		// Scheduler-triggered sweeps
		cron := api.Group("/cron")
		{
			cron.GET("/twitter-dms", authdelivery.CronMiddleware(cfg.CronSecret), ingestionHandler.SyncTwitter)
			if cfg.ClassifyRequireSecret {
				cron.GET("/classify", authdelivery.CronMiddleware(cfg.CronSecret), classificationHandler.RunSweep)
			} else {
				cron.GET("/classify", classificationHandler.RunSweep)
			}
		}

		auth := api.Group("/auth")
		auth.Use(requireAuth)
		{
			auth.GET("/me", authHandler.Me)
			auth.POST("/invite/redeem", authHandler.RedeemInvite)
		}

		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		opportunities := api.Group("/opportunities")
		opportunities.Use(requireAuth)
		{
			opportunities.GET("", oppHandler.ListOpportunities)
			opportunities.GET("/search", oppHandler.Search)
			opportunities.POST("/semantic-search", oppHandler.SemanticSearch)
			opportunities.GET("/:id", oppHandler.GetOpportunity)
			opportunities.GET("/:id/comments", oppHandler.ListComments)
			opportunities.POST("/:id/actions", oppHandler.ApplyAction)
			opportunities.POST("/:id/research", oppHandler.ResearchSender)
		}

		goals := api.Group("/goals")
		goals.Use(requireAuth)
		{
			goals.GET("", oppHandler.ListGoals)
			goals.POST("", oppHandler.CreateGoal)
			goals.PUT("/:id", oppHandler.UpdateGoal)
			goals.DELETE("/:id", oppHandler.DeleteGoal)
		}

		messages := api.Group("/messages")
		messages.Use(requireAuth)
		{
			messages.POST("/email", messagingHandler.SendEmail)
			messages.POST("/twitter", messagingHandler.SendTwitter)
			messages.POST("/draft", messagingHandler.DraftReply)
			messages.GET("/thread", messagingHandler.GetThread)
			messages.PATCH("/thread/:id/status", messagingHandler.UpdateThreadStatus)
		}
		api.GET("/writing-style", requireAuth, messagingHandler.GetWritingStyle)
		api.PUT("/writing-style", requireAuth, messagingHandler.SaveWritingStyle)
		api.POST("/twitter/connect", requireAuth, messagingHandler.ConnectTwitter)

		transcripts := api.Group("/transcripts")
		transcripts.Use(requireAuth)
		{
			transcripts.POST("/process", transcriptHandler.Process)
			transcripts.POST("/process-bulk", transcriptHandler.ProcessBulk)
			transcripts.POST("/apply", transcriptHandler.Apply)
			transcripts.POST("/sessions", transcriptHandler.CreateSession)
			transcripts.GET("/sessions/:id", transcriptHandler.GetSession)
			transcripts.POST("/sessions/:id/apply", transcriptHandler.ApplyCurrent)
			transcripts.POST("/sessions/:id/skip", transcriptHandler.SkipCurrent)
		}

		settings := api.Group("/settings")
		settings.Use(requireAuth)
		{
			settings.GET("/ai", settingsHandler.GetAISettings)
			settings.PUT("/ai", settingsHandler.UpdateAISettings)
			settings.POST("/ai/test", settingsHandler.TestAIConnection)
		}
	}
}
