package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Registration *RegistrationHandler
	Enrollments  *EnrollmentHandler
	Schedules    *ScheduleHandler
	Offerings    *OfferingHandler
	Students     *StudentHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts every endpoint under the API prefix. Paths mirror
// what the registration client calls.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	api.GET("/students", h.Students.Search)
	api.PATCH("/students/:id/levels", h.Students.ConfirmLevels)

	api.GET("/schedules", h.Schedules.List)
	api.POST("/schedules", h.Schedules.Create)
	api.PUT("/schedules/:id", h.Schedules.Update)

	api.GET("/offerings", h.Offerings.List)

	api.GET("/enrollments", h.Enrollments.List)
	api.POST("/enrollments", h.Enrollments.Create)
	api.DELETE("/enrollments/:id", h.Enrollments.Delete)

	registration := api.Group("/registration")
	registration.POST("/sessions", h.Registration.StartSession)
	registration.POST("/sessions/check", h.Registration.CheckSession)
	registration.POST("/sessions/end", h.Registration.EndSession)
	registration.POST("/enrollments", h.Registration.ConditionalEnroll)
}
