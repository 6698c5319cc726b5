package server

import (
	"net/http"

	"github.com/j9brown/victron-vebus/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/state", s.StateHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.ActorHealthRequest{}, s.askTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK ("+response.State+")")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StateHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.GetDeviceStateRequest{}, s.askTimeout).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetDeviceStateResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected controller response")
	}
	return c.JSON(http.StatusOK, response)
}
