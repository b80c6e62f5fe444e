package di

import (
	"go.uber.org/zap"

	"catalog/application/commands/bus"
	"catalog/application/ports"
	querybus "catalog/application/queries/bus"
	"catalog/infrastructure/config"
	"catalog/interfaces/http/rest"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Storage    *Storage
	Slugs      ports.SlugRegistry
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router
}
