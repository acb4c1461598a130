package api

import (
	"github.com/geowire/geowire/app/aggregator"
	"github.com/geowire/geowire/app/history"
	"github.com/geowire/geowire/app/sources"
)

type Handler struct {
	aggregator *aggregator.Aggregator
	registry   *sources.Registry
	history    history.Repository
}

func NewHandler(agg *aggregator.Aggregator, registry *sources.Registry, historyRepo history.Repository) *Handler {
	return &Handler{
		aggregator: agg,
		registry:   registry,
		history:    historyRepo,
	}
}
