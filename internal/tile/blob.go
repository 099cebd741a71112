package tile

// Blob is a fetched tile: the raw bytes plus the payload produced by the source's
// decoder (an image.Image for raster sources, decoded layers for vector sources).
// The cache owns a blob; callers must not keep references past one draw call.
type Blob struct {
	Data    []byte
	Decoded any
}

// Size is the number of bytes the blob is charged against the cache budget.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}
