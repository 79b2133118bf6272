package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"gitlab.com/tinyland/lab/flipbook/pkg/cache"
)

// Cached wraps a Backend so rendered bitmaps and page dimensions are
// served from a disk store when the same document is reopened.
type Cached struct {
	Backend Backend
	Store   *cache.Store
	Logger  *slog.Logger
}

// Open opens source through the wrapped backend.
func (c Cached) Open(ctx context.Context, source string) (Handle, error) {
	h, err := c.Backend.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	if c.Store == nil {
		return h, nil
	}
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	id := cache.SourceID(source)
	if f, ok := h.(Fingerprinter); ok && f.Fingerprint() != "" {
		id = f.Fingerprint()
	}
	c.retire(source, id, log)
	return &cachedHandle{Handle: h, store: c.Store, id: id, log: log}, nil
}

// retire records id as the content of source and drops the pages cached
// under the content it replaces, so a changed document stops taking up
// space before its entries expire.
func (c Cached) retire(source, id string, log *slog.Logger) {
	k := cache.Key{Source: source, Page: -1, Variant: "fingerprint"}
	prev, ok := cache.GetJSON[string](c.Store, k)
	if ok && prev == id {
		return
	}
	if ok {
		if n := c.Store.PurgeSource(prev); n > 0 {
			log.Info("purged pages of changed document", "source", source, "entries", n)
		}
	}
	if err := cache.PutJSON(c.Store, k, id); err != nil {
		log.Debug("fingerprint not cached", "source", source, "error", err)
	}
}

type cachedHandle struct {
	Handle
	store *cache.Store
	id    string
	log   *slog.Logger
}

type pageDims struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (h *cachedHandle) PageSize(ctx context.Context, index int) (float64, float64, error) {
	k := cache.Key{Source: h.id, Page: index, Variant: "size"}
	if d, ok := cache.GetJSON[pageDims](h.store, k); ok {
		return d.W, d.H, nil
	}
	w, ht, err := h.Handle.PageSize(ctx, index)
	if err != nil {
		return 0, 0, err
	}
	if err := cache.PutJSON(h.store, k, pageDims{W: w, H: ht}); err != nil {
		h.log.Debug("page size not cached", "page", index, "error", err)
	}
	return w, ht, nil
}

func (h *cachedHandle) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	k := cache.Key{Source: h.id, Page: index, Variant: fmt.Sprintf("png@%.2f", scale)}
	if data, ok := h.store.Get(k); ok {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err == nil {
			return img, nil
		}
		h.log.Warn("dropping unreadable cached page", "page", index, "error", err)
		_ = h.store.Delete(k)
	}

	img, err := h.Handle.RenderPage(ctx, index, scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		h.log.Debug("page not cached", "page", index, "error", err)
		return img, nil
	}
	if err := h.store.Put(k, buf.Bytes()); err != nil {
		h.log.Debug("page not cached", "page", index, "error", err)
	}
	return img, nil
}
