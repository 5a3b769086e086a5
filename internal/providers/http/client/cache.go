package client

import (
	"bufio"
	"bytes"
	"mime"
	"net/http"

	"github.com/gregjones/httpcache"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries bounds the response cache when Options.CacheEntries is unset.
const DefaultCacheEntries = 512

// assetCache is a bounded httpcache.Cache that refuses documents and
// stylesheets. httpcache keys entries by URL alone, while those responses
// can vary with the browser profile headers.
type assetCache struct {
	entries *lru.Cache[string, []byte]
}

var _ httpcache.Cache = (*assetCache)(nil)

func newAssetCache(size int) *assetCache {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	// New only fails for a non-positive size
	entries, _ := lru.New[string, []byte](size)
	return &assetCache{entries: entries}
}

func (c *assetCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *assetCache) Set(key string, dump []byte) {
	if !cacheableAsset(dump) {
		return
	}
	c.entries.Add(key, dump)
}

func (c *assetCache) Delete(key string) {
	c.entries.Remove(key)
}

// cacheableAsset inspects a dumped response and accepts anything that is
// not HTML or CSS.
func cacheableAsset(dump []byte) bool {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), nil)
	if err != nil {
		return false
	}
	resp.Body.Close()

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/css":
		return false
	}
	return true
}
