package routes

import (
	"tripline/auth"
	"tripline/itinerary"
	"tripline/live"
	"tripline/middleware"
	"tripline/ratelim"
	"tripline/utils"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/login", auth.Login)
	router.POST("/api/auth/register", auth.Register)
	router.POST("/api/auth/logout", auth.Logout)
	router.POST("/api/auth/token/refresh", auth.RefreshToken)
}

func AddItineraryRoutes(router *httprouter.Router, api *itinerary.API) {
	router.GET("/api/itineraries", middleware.OptionalAuth(itinerary.GetItineraries)) //Fetch all itineraries
	router.POST("/api/itineraries", itinerary.CreateItinerary)                        //Create a new itinerary
	router.GET("/api/itineraries/all/:id", itinerary.GetItinerary)                    //Fetch a single itinerary
	router.PUT("/api/itineraries/:id", itinerary.UpdateItinerary)                     //Update an itinerary
	router.DELETE("/api/itineraries/:id", api.DeleteItinerary)                        //Delete an itinerary
	router.GET("/api/itineraries/search", itinerary.SearchItineraries)                //Search an itinerary
	router.POST("/api/itineraries/:id/fork", api.ForkItinerary)                       //Fork a new itinerary
	router.PUT("/api/itineraries/:id/publish", itinerary.PublishItinerary)            //Publish an itinerary
}

func AddScheduleRoutes(router *httprouter.Router, api *itinerary.API) {
	router.GET("/api/itineraries/all/:id/schedule", api.GetSchedule)
	router.POST("/api/itineraries/:id/stops", middleware.Authenticate(api.AddStop))
	router.PUT("/api/itineraries/:id/stops/:stopId/move", middleware.Authenticate(api.MoveStop))
	router.PUT("/api/itineraries/:id/stops/:stopId/day", middleware.Authenticate(api.ChangeStopDay))
	router.DELETE("/api/itineraries/:id/stops/:stopId", middleware.Authenticate(api.RemoveStop))
	router.POST("/api/itineraries/:id/session/close", middleware.Authenticate(api.CloseSession))
}

func AddMergeRoutes(router *httprouter.Router, api *itinerary.API, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/itineraries/:id/assistant", rateLimiter.Limit(middleware.Authenticate(api.AssistantChat)))
	router.POST("/api/itineraries/:id/merge/batch", middleware.Authenticate(api.ApplyBatch))
	router.POST("/api/itineraries/:id/merge/replace", middleware.Authenticate(api.ApplyReplace))
	router.POST("/api/itineraries/:id/merge/replace-from", middleware.Authenticate(api.ApplyReplaceFrom))
	router.POST("/api/itineraries/:id/reoptimize/stage", middleware.Authenticate(api.StageReoptimization))
	router.POST("/api/itineraries/:id/reoptimize/commit", middleware.Authenticate(api.CommitReoptimization))
	router.POST("/api/itineraries/:id/reoptimize/discard", middleware.Authenticate(api.DiscardReoptimization))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/itineraries/:id", live.WebSocketHandler(hub))
}

func AddUtilityRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/csrf", rateLimiter.Limit(middleware.Authenticate(utils.CSRF)))
}
