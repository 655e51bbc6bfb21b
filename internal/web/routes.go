package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/facegallery/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.engine)
	clustersHandler := handlers.NewClustersHandler(s.engine)
	auditHandler := handlers.NewAuditHandler(s.engine)
	indexHandler := handlers.NewIndexHandler(s.engine)
	peopleHandler := handlers.NewPeopleHandler(s.people)
	photosHandler := handlers.NewPhotosHandler(s.engine, s.faces, s.detector)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Faces
		r.Get("/faces/{id}", facesHandler.Get)
		r.Delete("/faces/{id}", facesHandler.Delete)
		r.Post("/faces/{id}/assign", facesHandler.Assign)
		r.Post("/faces/{id}/reject", facesHandler.Reject)
		r.Post("/faces/{id}/verify", facesHandler.Verify)
		r.Post("/faces/{id}/exclude", facesHandler.Exclude)
		r.Post("/faces/{id}/include", facesHandler.Include)
		r.Post("/faces/recognize", facesHandler.Recognize)
		r.Post("/faces/rematch", facesHandler.Rematch)

		// Review clusters
		r.Get("/clusters", clustersHandler.List)

		// Consistency audit
		r.Get("/audit", auditHandler.All)
		r.Get("/audit/{uid}", auditHandler.Person)
		r.Post("/audit/exclusions", auditHandler.ApplyExclusions)

		// Index maintenance
		r.Get("/index/stats", indexHandler.Stats)
		r.Post("/index/rebuild", indexHandler.Rebuild)

		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Create)
		r.Get("/people/{uid}", peopleHandler.Get)
		r.Delete("/people/{uid}", peopleHandler.Delete)

		// Photos
		r.Post("/photos/{uid}/detect", photosHandler.Detect)
		r.Get("/photos/{uid}/faces", photosHandler.GetFaces)
		r.Delete("/photos/{uid}/faces", photosHandler.DeleteFaces)
	})
}
