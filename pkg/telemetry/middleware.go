package telemetry

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// untraced are polled or long lived paths that would only add noise.
var untraced = map[string]bool{
	"/api/v1/healthz": true,
	"/api/v1/events":  true,
	"/metrics":        true,
}

// GinMiddleware starts a server span per request. Tile routes also carry the
// tile address, and a 202 marks the tile as still being fetched.
func GinMiddleware() gin.HandlerFunc {
	tracer := Tracer()

	return func(c *gin.Context) {
		if untraced[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.URLPath(c.Request.URL.Path),
				semconv.HTTPRoute(c.FullPath()),
				semconv.ClientAddress(c.ClientIP()),
				semconv.UserAgentOriginal(c.Request.UserAgent()),
			),
		)
		defer span.End()
		span.SetAttributes(tileAttributes(c)...)

		c.Request = c.Request.WithContext(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPResponseStatusCode(status),
			attribute.Int("http.response.size", c.Writer.Size()),
			attribute.Bool("tile.pending", status == http.StatusAccepted),
		)

		if status >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// tileAttributes reads the tile address of tile routes and the source of any
// request that names one.
func tileAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, name := range []string{"z", "x", "y"} {
		if v, err := strconv.Atoi(c.Param(name)); err == nil {
			attrs = append(attrs, attribute.Int("tile."+name, v))
		}
	}

	source := c.Query("source")
	if source == "" {
		source = c.Param("source")
	}
	if source != "" {
		attrs = append(attrs, attribute.String("tile.source", source))
	}
	return attrs
}
