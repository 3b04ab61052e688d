package routes

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/server"
)

// RegisterStoreRoutes 暴露 /-/stores 与 /-/metrics 诊断接口，只输出配置与计数，不读写任何键。
func RegisterStoreRoutes(app *fiber.App, registry *server.StoreRegistry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/stores", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"stores":  encodeStores(registry.List()),
			"drivers": encodeDrivers(cache.Drivers()),
		})
	})

	app.Get("/-/stores/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "store_name_required"})
		}
		route, ok := registry.Lookup(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store_not_found"})
		}
		return c.JSON(encodeStore(*route))
	})

	app.Get("/-/metrics", func(c fiber.Ctx) error {
		var buf bytes.Buffer
		cache.WriteMetrics(&buf)
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		return c.Send(buf.Bytes())
	})
}

type storePayload struct {
	Name          string `json:"name"`
	Driver        string `json:"driver"`
	Prefix        string `json:"prefix"`
	Path          string `json:"path,omitempty"`
	Bucket        string `json:"bucket,omitempty"`
	Serializer    string `json:"serializer"`
	ChainPosition int    `json:"chain_position"`
}

type driverPayload struct {
	Key          string `json:"key"`
	Description  string `json:"description"`
	RequiresPath bool   `json:"requires_path"`
}

func encodeStores(routes []server.StoreRoute) []storePayload {
	if len(routes) == 0 {
		return nil
	}
	result := make([]storePayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, encodeStore(route))
	}
	return result
}

func encodeStore(route server.StoreRoute) storePayload {
	return storePayload{
		Name:          route.Config.Name,
		Driver:        route.Driver.Key,
		Prefix:        route.Store.Prefix(),
		Path:          route.Config.Path,
		Bucket:        route.Config.Bucket,
		Serializer:    route.Serializer,
		ChainPosition: route.Position,
	}
}

func encodeDrivers(drivers []cache.DriverMetadata) []driverPayload {
	if len(drivers) == 0 {
		return nil
	}
	result := make([]driverPayload, 0, len(drivers))
	for _, meta := range drivers {
		result = append(result, driverPayload{
			Key:          meta.Key,
			Description:  meta.Description,
			RequiresPath: meta.RequiresPath,
		})
	}
	return result
}
