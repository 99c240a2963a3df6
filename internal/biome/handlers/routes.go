package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all biome and farm routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/biomes", func(r chi.Router) {
		r.Get("/", h.HandleListBiomes)
		r.Route("/{biome}", func(r chi.Router) {
			r.Get("/", h.HandleSnapshot)
			r.Get("/bloch", h.HandleBloch)
			r.Get("/purity", h.HandlePurity)
			r.Get("/population/{label}", h.HandlePopulation)
			r.Get("/lookahead", h.HandleLookahead)

			r.Post("/explore", h.HandleExplore)
			r.Post("/measure", h.HandleMeasure)
			r.Post("/pop", h.HandlePop)
			r.Post("/gate", h.HandleGate)
			r.Post("/gate2q", h.HandleGate2Q)
			r.Post("/entangle", h.HandleEntangle)
			r.Post("/reentangle", h.HandleReentangle)
			r.Post("/infra/gate", h.HandleInstallGate)
			r.Post("/drive", h.HandleDrive)
			r.Post("/decay", h.HandleDecay)
			r.Post("/vocabulary", h.HandleInjectVocabulary)
			r.Delete("/vocabulary/{qubit}", h.HandleRemoveVocabulary)
		})
	})

	r.Route("/farm", func(r chi.Router) {
		r.Post("/entangle", h.HandleEntangleAcross)
		r.Get("/time-scale", h.HandleGetTimeScale)
		r.Put("/time-scale", h.HandleSetTimeScale)
		r.Get("/evolution", h.HandleEvolutionStats)
	})
}
