package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，generateLimit 只作用于生成类接口
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers, generateLimit gin.HandlerFunc) {
	// 品牌
	brands := v1.Group("/brands")
	{
		brands.GET("", h.Brand.ListBrands)
		brands.POST("", generateLimit, h.Brand.OnboardBrand)
		brands.GET("/:id", h.Brand.GetBrand)
		brands.PUT("/:id", h.Brand.UpdateBrand)
		brands.DELETE("/:id", h.Brand.DeleteBrand)

		brands.GET("/:id/personas", h.Persona.ListPersonas)
		brands.POST("/:id/personas", h.Persona.CreatePersona)
		brands.GET("/:id/environments", h.Persona.ListEnvironments)
		brands.POST("/:id/environments", h.Persona.CreateEnvironment)

		brands.GET("/:id/cards", h.Card.ListCards)
		brands.POST("/:id/cards/generate", generateLimit, h.Card.GenerateCards)
	}

	personas := v1.Group("/personas")
	{
		personas.GET("/:id", h.Persona.GetPersona)
		personas.PUT("/:id", h.Persona.UpdatePersona)
		personas.DELETE("/:id", h.Persona.DeletePersona)
	}

	environments := v1.Group("/environments")
	{
		environments.GET("/:id", h.Persona.GetEnvironment)
		environments.PUT("/:id", h.Persona.UpdateEnvironment)
		environments.DELETE("/:id", h.Persona.DeleteEnvironment)
	}

	// 网红
	influencers := v1.Group("/influencers")
	{
		influencers.GET("", h.Influencer.ListInfluencers)
		influencers.POST("", generateLimit, h.Influencer.CreateInfluencer)
		influencers.POST("/find-new", generateLimit, h.Influencer.FindNew)
		influencers.GET("/:id", h.Influencer.GetInfluencer)
		influencers.PUT("/:id", h.Influencer.UpdateInfluencer)
		influencers.DELETE("/:id", h.Influencer.DeleteInfluencer)
		influencers.POST("/:id/enabled", h.Influencer.SetEnabled)
		influencers.POST("/:id/retry", generateLimit, h.Influencer.RetryImagery)
	}

	// 卡片
	cards := v1.Group("/cards")
	{
		cards.POST("/publish", h.Card.PublishCards)
		cards.POST("/unpublish", h.Card.UnpublishCards)
		cards.POST("/delete", h.Card.DeleteCards)
		cards.GET("/:id", h.Card.GetCard)
		cards.PUT("/:id", h.Card.UpdateCard)
		cards.DELETE("/:id", h.Card.DeleteCard)
		cards.POST("/:id/view", h.Card.RecordView)
		cards.POST("/:id/share", h.Card.RecordShare)
	}

	// 运行记录
	runs := v1.Group("/runs")
	{
		runs.GET("", h.Run.ListRuns)
		runs.GET("/:id", h.Run.GetRun)
	}
}
