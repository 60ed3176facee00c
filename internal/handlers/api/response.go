package api

import (
	"encoding/hex"
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/zeebo/blake3"
)

// cacheControl lets browsers and proxies reuse dashboard responses briefly.
const cacheControl = "public, max-age=60, stale-while-revalidate=30"

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonCached writes data in the standard envelope with caching headers. The
// ETag is derived from version, which must change whenever the cached
// content does; a matching If-None-Match gets a 304 without a body.
func jsonCached(c fiber.Ctx, data, version any) error {
	tag, err := etag(version)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to encode response")
	}

	c.Set(fiber.HeaderCacheControl, cacheControl)
	c.Set(fiber.HeaderETag, tag)
	if match := c.Get(fiber.HeaderIfNoneMatch); match != "" && match == tag {
		return c.SendStatus(fiber.StatusNotModified)
	}
	return jsonSuccess(c, data)
}

// etag returns a strong ETag over the JSON encoding of v.
func etag(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}
