package dto

import (
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/cache"
)

type TileQuery struct {
	Source string `form:"source" validate:"omitempty,max=64"`
}

type ViewportQuery struct {
	Source string  `form:"source" validate:"omitempty,max=64"`
	MinLon float64 `form:"min_lon" validate:"gte=-180,lte=180"`
	MinLat float64 `form:"min_lat" validate:"gte=-90,lte=90"`
	MaxLon float64 `form:"max_lon" validate:"gte=-180,lte=180,gtfield=MinLon"`
	MaxLat float64 `form:"max_lat" validate:"gte=-90,lte=90,gtfield=MinLat"`
	Zoom   int     `form:"zoom" validate:"gte=0,lte=30"`
	Format string  `form:"format" validate:"omitempty,oneof=json png"`
}

type FlushCacheQuery struct {
	All bool `form:"all"`
}

type FlushQueueQuery struct {
	Zoom *int `form:"zoom" validate:"omitempty,gte=0,lte=30"`
}

type DrawOp struct {
	Tile string `json:"tile"`
	Cell string `json:"cell"`
	Kind string `json:"kind"`
	Src  [4]int `json:"src"`
	Dst  [4]int `json:"dst"`
}

type PlanResponse struct {
	Source  string   `json:"source"`
	Zoom    int      `json:"zoom"`
	Pass    uint64   `json:"pass"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Ops     []DrawOp `json:"ops"`
	Missing []string `json:"missing"`
}

type SourceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	TileWidth   int    `json:"tile_width"`
	TileHeight  int    `json:"tile_height"`
	MinZoom     int    `json:"min_zoom"`
	MaxZoom     int    `json:"max_zoom"`
	MaxOverzoom int    `json:"max_overzoom"`
}

type SourcesResponse struct {
	Active      string           `json:"active"`
	Sources     []SourceResponse `json:"sources"`
	LastSources []string         `json:"last_sources"`
	Warning     bool             `json:"warning"`
}

type FlushResponse struct {
	Source  string `json:"source"`
	Removed int    `json:"removed"`
}

type StatsResponse struct {
	Source      string      `json:"source"`
	Generation  uint64      `json:"generation"`
	Pass        uint64      `json:"pass"`
	Failures    int64       `json:"failures"`
	Warning     bool        `json:"warning"`
	Pending     int         `json:"pending"`
	Cache       cache.Stats `json:"cache"`
	LastSources []string    `json:"last_sources"`
}
