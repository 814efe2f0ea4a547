package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-station/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	enrollHandler := handlers.NewEnrollHandler(s.manager, s.detector)
	trainHandler := handlers.NewTrainHandler(s.manager)
	recognizeHandler := handlers.NewRecognizeHandler(s.engine, s.detector)
	liveHandler := handlers.NewLiveHandler(s.manager)
	peopleHandler := handlers.NewPeopleHandler(s.store, s.engine)
	modelHandler := handlers.NewModelHandler(s.engine)
	statusHandler := handlers.NewStatusHandler(s.manager, s.store)
	statsHandler := handlers.NewStatsHandler(s.store, s.engine)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", statusHandler.Status)
		r.Get("/stats", statsHandler.Get)

		// Enrollment (long-running, progress on the event stream)
		r.Post("/enroll/start", enrollHandler.Start)
		r.Post("/enroll/cancel", enrollHandler.Cancel)
		r.Post("/enroll/key", enrollHandler.Key)
		r.Get("/enroll/events", enrollHandler.Events)

		// Frame push from a remote camera
		r.Post("/frames", enrollHandler.Frame)

		// Training & recognition
		r.Post("/train", trainHandler.Train)
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/live/start", liveHandler.Start)
		r.Post("/live/stop", liveHandler.Stop)

		// Dataset & model
		r.Get("/people", peopleHandler.List)
		r.Get("/people/{name}", peopleHandler.Get)
		r.Get("/model", modelHandler.Get)
	})
}
