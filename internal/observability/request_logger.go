package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mssola/useragent"
	"go.uber.org/zap"

	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// RequestLogger logs each request and records its metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}
		latency := time.Since(start)

		path := c.Path()
		if route := c.Route(); route != nil && route.Path != "" {
			path = route.Path
		}
		metrics.RecordRequest(path, c.Method(), status, latency)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}
		logger.Info("http request", append(fields, clientFields(c.Get(fiber.HeaderUserAgent))...)...)
		return err
	}
}

// clientFields summarises the caller's user agent.
func clientFields(raw string) []zap.Field {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	return []zap.Field{
		zap.String("client_os", ua.OS()),
		zap.String("client_browser", browser+" "+version),
		zap.Bool("client_mobile", ua.Mobile()),
		zap.Bool("client_bot", ua.Bot()),
	}
}
