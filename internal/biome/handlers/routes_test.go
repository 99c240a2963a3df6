package handlers

import (
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}

func TestRegisterRoutesMountsEveryEndpoint(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, zerolog.Nop()).RegisterRoutes(router)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/biomes/"},
		{"GET", "/biomes/farm/"},
		{"GET", "/biomes/farm/bloch"},
		{"GET", "/biomes/farm/purity"},
		{"GET", "/biomes/farm/population/wheat"},
		{"GET", "/biomes/farm/lookahead"},
		{"POST", "/biomes/farm/explore"},
		{"POST", "/biomes/farm/measure"},
		{"POST", "/biomes/farm/pop"},
		{"POST", "/biomes/farm/gate"},
		{"POST", "/biomes/farm/gate2q"},
		{"POST", "/biomes/farm/entangle"},
		{"POST", "/biomes/farm/reentangle"},
		{"POST", "/biomes/farm/infra/gate"},
		{"POST", "/biomes/farm/drive"},
		{"POST", "/biomes/farm/decay"},
		{"POST", "/biomes/farm/vocabulary"},
		{"DELETE", "/biomes/farm/vocabulary/1"},
		{"POST", "/farm/entangle"},
		{"GET", "/farm/time-scale"},
		{"PUT", "/farm/time-scale"},
		{"GET", "/farm/evolution"},
	}
	for _, ep := range endpoints {
		assert.True(t, router.Match(chi.NewRouteContext(), ep.method, ep.path), "%s %s", ep.method, ep.path)
	}

	assert.False(t, router.Match(chi.NewRouteContext(), "DELETE", "/biomes/farm/gate"))
	assert.False(t, router.Match(chi.NewRouteContext(), "POST", "/farm/time-scale"))
}
