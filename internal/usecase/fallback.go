package usecase

import (
	"image"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/render"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
)

type DrawKind string

const (
	DrawExact     DrawKind = "exact"
	DrawOverzoom  DrawKind = "overzoom"
	DrawUnderzoom DrawKind = "underzoom"
)

// rasterUnderzoomDepth bounds the child search of raster sources, which only
// runs when no ancestor is cached.
const rasterUnderzoomDepth = 2

// DrawOp paints Key's blob, cropped to Src (tile pixels), into Dst (plan pixels).
type DrawOp struct {
	Key  tile.Key
	Cell tile.Key
	Kind DrawKind
	Blob tile.Blob
	Src  image.Rectangle
	Dst  image.Rectangle
}

// Plan is the result of one draw pass over a tile range. Missing lists the cells
// that stay blank until a later pass.
type Plan struct {
	Source  string
	Range   tile.Range
	Owner   Owner
	Width   int
	Height  int
	Ops     []DrawOp
	Missing []tile.Key
}

func (p Plan) RenderOps() []render.Op {
	ops := make([]render.Op, len(p.Ops))
	for i, op := range p.Ops {
		ops[i] = render.Op{Blob: op.Blob, Src: op.Src, Dst: op.Dst}
	}
	return ops
}

// TileGetter is the facade view used by the resolver. Only GetTile may start a
// fetch.
type TileGetter interface {
	GetTile(k tile.Key, owner Owner) (tile.Blob, bool)
	GetTileFromCacheOnly(k tile.Key) (tile.Blob, bool)
}

// FallbackResolver fills a tile range with the exact tiles and, where those are
// not cached, with substitutes from neighbouring zoom levels.
type FallbackResolver struct {
	logger logger.Logger
}

func NewFallbackResolver(l logger.Logger) *FallbackResolver {
	return &FallbackResolver{
		logger: l,
	}
}

type pass struct {
	src     Source
	rng     tile.Range
	tiles   TileGetter
	covered []bool
	plan    *Plan
}

// Resolve plans the draw of rng. Exact tiles are requested through GetTile, so
// misses get fetched for later passes; every other substitute comes from the
// cache only. Past the source's max zoom the max zoom tiles take the place of
// the exact ones. Each cell is painted by at most one exact or overzoom op.
func (r *FallbackResolver) Resolve(src Source, rng tile.Range, owner Owner, tiles TileGetter) Plan {
	plan := Plan{
		Source: src.ID,
		Range:  rng,
		Owner:  owner,
		Width:  rng.Width() * src.TileWidth,
		Height: rng.Height() * src.TileHeight,
	}
	p := &pass{
		src:     src,
		rng:     rng,
		tiles:   tiles,
		covered: make([]bool, rng.Len()),
		plan:    &plan,
	}

	// exact tiles first so substitutes never paint over them
	if rng.Zoom >= src.MinZoom && rng.Zoom <= src.MaxZoom {
		for y := rng.MinY; y <= rng.MaxY; y++ {
			for x := rng.MinX; x <= rng.MaxX; x++ {
				k := tile.NewKey(src.ID, rng.Zoom, x, y)
				if blob, ok := tiles.GetTile(k, owner); ok {
					p.add(DrawOp{Key: k, Cell: k, Kind: DrawExact, Blob: blob, Src: p.fullTile(), Dst: p.cellRect(x, y)})
					p.covered[rng.Index(x, y)] = true
				}
			}
		}
	} else if rng.Zoom > src.MaxZoom {
		p.beyondMaxZoom(owner)
	}

	for y := rng.MinY; y <= rng.MaxY; y++ {
		for x := rng.MinX; x <= rng.MaxX; x++ {
			if p.covered[rng.Index(x, y)] {
				continue
			}
			var ok bool
			if src.Vector() {
				ok = p.resolveVector(x, y)
			} else {
				ok = p.resolveRaster(x, y)
			}
			if !ok {
				plan.Missing = append(plan.Missing, tile.NewKey(src.ID, rng.Zoom, x, y))
			}
		}
	}

	if len(plan.Missing) > 0 {
		r.logger.Debug("draw pass left cells blank", "source", src.ID, "zoom", rng.Zoom, "missing", len(plan.Missing))
	}

	return plan
}

// beyondMaxZoom covers a range deeper than the source goes. The tiles of the
// deepest level are requested like exact tiles and stretched over their
// footprint.
func (p *pass) beyondMaxZoom(owner Owner) {
	depth := p.rng.Zoom - p.src.MaxZoom
	for y := p.rng.MinY; y <= p.rng.MaxY; y++ {
		for x := p.rng.MinX; x <= p.rng.MaxX; x++ {
			cell := tile.NewKey(p.src.ID, p.rng.Zoom, x, y)
			anc := tile.NewKey(p.src.ID, p.src.MaxZoom, cell.X>>depth, cell.Y>>depth)
			if blob, ok := p.tiles.GetTile(anc, owner); ok {
				p.add(DrawOp{Key: anc, Cell: cell, Kind: DrawOverzoom, Blob: blob, Src: p.crop(cell, depth), Dst: p.cellRect(x, y)})
				p.covered[p.rng.Index(x, y)] = true
			}
		}
	}
}

// resolveRaster walks up to the closest cached ancestor and shares it with every
// uncovered cell of the ancestor's footprint. Without an ancestor it composes
// cached children.
func (p *pass) resolveRaster(x, y int) bool {
	cell := tile.NewKey(p.src.ID, p.rng.Zoom, x, y)

	if anc, depth, blob, ok := p.ancestor(cell); ok {
		for cy := p.rng.MinY; cy <= p.rng.MaxY; cy++ {
			for cx := p.rng.MinX; cx <= p.rng.MaxX; cx++ {
				i := p.rng.Index(cx, cy)
				if p.covered[i] {
					continue
				}
				other := tile.NewKey(p.src.ID, p.rng.Zoom, cx, cy)
				if other.X>>depth != anc.X || other.Y>>depth != anc.Y {
					continue
				}
				p.add(DrawOp{Key: anc, Cell: other, Kind: DrawOverzoom, Blob: blob, Src: p.crop(other, depth), Dst: p.cellRect(cx, cy)})
				p.covered[i] = true
			}
		}
		return true
	}

	var ops []DrawOp
	p.children(cell, cell, p.cellRect(x, y), 0, min(rasterUnderzoomDepth, p.src.MaxOverzoom), &ops)
	if len(ops) == 0 {
		return false
	}
	p.add(ops...)
	p.covered[p.rng.Index(x, y)] = true
	return true
}

// resolveVector prefers cached children. When they leave gaps the closest
// ancestor is painted underneath them.
func (p *pass) resolveVector(x, y int) bool {
	cell := tile.NewKey(p.src.ID, p.rng.Zoom, x, y)

	var ops []DrawOp
	full := p.children(cell, cell, p.cellRect(x, y), 0, p.src.MaxOverzoom, &ops)
	if !full {
		if anc, depth, blob, ok := p.ancestor(cell); ok {
			under := DrawOp{Key: anc, Cell: cell, Kind: DrawOverzoom, Blob: blob, Src: p.crop(cell, depth), Dst: p.cellRect(x, y)}
			ops = append([]DrawOp{under}, ops...)
		}
	}
	if len(ops) == 0 {
		return false
	}

	p.add(ops...)
	p.covered[p.rng.Index(x, y)] = true
	return true
}

// ancestor returns the closest cached ancestor of k within the overzoom limit.
func (p *pass) ancestor(k tile.Key) (tile.Key, int, tile.Blob, bool) {
	anc := k
	for depth := 1; depth <= p.src.MaxOverzoom && k.Zoom-depth >= p.src.MinZoom; depth++ {
		anc = anc.Parent()
		if blob, ok := p.tiles.GetTileFromCacheOnly(anc); ok {
			return anc, depth, blob, true
		}
	}
	return tile.Key{}, 0, tile.Blob{}, false
}

// children composes cached descendants of k into dst, closest zoom first. It
// reports whether dst is fully covered.
func (p *pass) children(cell, k tile.Key, dst image.Rectangle, depth, maxDepth int, ops *[]DrawOp) bool {
	if depth >= maxDepth || k.Zoom+1 > p.src.MaxZoom || dst.Dx() < 2 || dst.Dy() < 2 {
		return false
	}

	kids := k.Children()
	quads := quarters(dst)
	var found [4]bool
	for i, c := range kids {
		if blob, ok := p.tiles.GetTileFromCacheOnly(c); ok {
			*ops = append(*ops, DrawOp{Key: c, Cell: cell, Kind: DrawUnderzoom, Blob: blob, Src: p.fullTile(), Dst: quads[i]})
			found[i] = true
		}
	}

	full := true
	for i, c := range kids {
		if found[i] {
			continue
		}
		if !p.children(cell, c, quads[i], depth+1, maxDepth, ops) {
			full = false
		}
	}
	return full
}

// crop returns the part of k's ancestor depth levels up that covers k, in tile
// pixels. Each level halves the window and moves it into the quadrant the tile
// occupied in its parent.
func (p *pass) crop(k tile.Key, depth int) image.Rectangle {
	w, h := p.src.TileWidth, p.src.TileHeight
	sw, sh := w, h
	tx, ty := 0, 0
	x, y := k.X, k.Y
	for i := 0; i < depth; i++ {
		sw >>= 1
		sh >>= 1
		tx >>= 1
		ty >>= 1
		if x&1 == 1 {
			tx += w / 2
		}
		if y&1 == 1 {
			ty += h / 2
		}
		x >>= 1
		y >>= 1
	}
	return image.Rect(tx, ty, tx+max(sw, 1), ty+max(sh, 1))
}

func (p *pass) fullTile() image.Rectangle {
	return image.Rect(0, 0, p.src.TileWidth, p.src.TileHeight)
}

func (p *pass) cellRect(x, y int) image.Rectangle {
	x0 := (x - p.rng.MinX) * p.src.TileWidth
	y0 := (y - p.rng.MinY) * p.src.TileHeight
	return image.Rect(x0, y0, x0+p.src.TileWidth, y0+p.src.TileHeight)
}

func (p *pass) add(ops ...DrawOp) {
	for _, op := range ops {
		metrics.FallbackOps.WithLabelValues(string(op.Kind)).Inc()
	}
	p.plan.Ops = append(p.plan.Ops, ops...)
}

// quarters splits r into NW, NE, SW, SE, matching tile.Key.Children.
func quarters(r image.Rectangle) [4]image.Rectangle {
	mx := r.Min.X + r.Dx()/2
	my := r.Min.Y + r.Dy()/2
	return [4]image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, mx, my),
		image.Rect(mx, r.Min.Y, r.Max.X, my),
		image.Rect(r.Min.X, my, mx, r.Max.Y),
		image.Rect(mx, my, r.Max.X, r.Max.Y),
	}
}
