package http

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/embercash/payflow/api"
	"github.com/embercash/payflow/config"
	"github.com/embercash/payflow/engine"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/logger"
)

type authTokenResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type jwtCustomClaims struct {
	jwt.RegisteredClaims
}

type HttpService struct {
	api            api.API
	cfg            config.Config
	eventPublisher events.EventPublisher
	db             *gorm.DB
}

func NewHttpService(gormDB *gorm.DB, cfg config.Config, eng *engine.Engine, eventPublisher events.EventPublisher) *HttpService {
	return &HttpService{
		api:            api.NewAPI(gormDB, cfg, eng, eventPublisher),
		cfg:            cfg,
		eventPublisher: eventPublisher,
		db:             gormDB,
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogHost:      true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("user_agent", values.UserAgent).
				Str("host", values.Host).
				Str("request_id", values.RequestID).
				Msg("handled API request")
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/api/info", httpSvc.infoHandler)

	// allow one unlock request per second
	unlockRateLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(1))
	e.POST("/api/unlock", httpSvc.unlockHandler, unlockRateLimiter)

	jwtConfig := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwtCustomClaims)
		},
		KeyFunc: func(token *jwt.Token) (interface{}, error) {
			secret, err := httpSvc.cfg.GetJWTSecret()
			if err != nil {
				return nil, err
			}
			return []byte(secret), nil
		},
		TokenLookup: "header:Authorization:Bearer ,query:token",
	}

	restrictedApiGroup := e.Group("/api")
	restrictedApiGroup.Use(echojwt.WithConfig(jwtConfig))

	restrictedApiGroup.POST("/parse", httpSvc.parseHandler)
	restrictedApiGroup.GET("/invoices/:key", httpSvc.invoiceShowHandler)
	restrictedApiGroup.POST("/invoices/:key/pay", httpSvc.payHandler)

	restrictedApiGroup.POST("/requests", httpSvc.createRequestHandler)
	restrictedApiGroup.GET("/requests/:key", httpSvc.requestShowHandler)

	restrictedApiGroup.GET("/transactions", httpSvc.listTransactionsHandler)
	restrictedApiGroup.GET("/finalizers/:id", httpSvc.finalizerShowHandler)
	restrictedApiGroup.POST("/finalizers/:id/retry", httpSvc.finalizerRetryHandler)
	restrictedApiGroup.DELETE("/finalizers/:id", httpSvc.finalizerCancelHandler)

	restrictedApiGroup.GET("/otp", httpSvc.otpStatusHandler)
	restrictedApiGroup.POST("/otp", httpSvc.otpSubmitHandler)

	restrictedApiGroup.POST("/event", httpSvc.eventHandler)
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetInfo(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	unlocked := httpSvc.isUnlocked(c)
	if !unlocked {
		responseBody.WorkDir = "" // not exposed before auth
	}
	responseBody.Unlocked = unlocked

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) isUnlocked(c echo.Context) bool {
	authHeader := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return false
	}

	token, err := jwt.Parse(authHeader[len(prefix):], func(token *jwt.Token) (interface{}, error) {
		secret, err := httpSvc.cfg.GetJWTSecret()
		if err != nil {
			return nil, err
		}
		return []byte(secret), nil
	})
	return err == nil && token != nil && token.Valid
}

func (httpSvc *HttpService) unlockHandler(c echo.Context) error {
	var unlockRequest api.UnlockRequest
	if err := c.Bind(&unlockRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	expected := httpSvc.cfg.GetEnv().AuthPassword
	if expected == "" || subtle.ConstantTimeCompare([]byte(unlockRequest.Password), []byte(expected)) != 1 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Invalid password",
		})
	}

	token, err := httpSvc.createJWT(unlockRequest.TokenExpiryDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to save session: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, &authTokenResponse{
		Token: token,
	})
}

func (httpSvc *HttpService) createJWT(tokenExpiryDays *uint64) (string, error) {
	expiryDays := uint64(30)
	if tokenExpiryDays != nil {
		expiryDays = *tokenExpiryDays
	}

	claims := &jwtCustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * time.Duration(expiryDays))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if token == nil {
		return "", errors.New("failed to create token")
	}

	secret, err := httpSvc.cfg.GetJWTSecret()
	if err != nil {
		return "", err
	}

	return token.SignedString([]byte(secret))
}

func (httpSvc *HttpService) parseHandler(c echo.Context) error {
	var parseRequest api.ParseRequest
	if err := c.Bind(&parseRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	responseBody, err := httpSvc.api.ParseInvoice(c.Request().Context(), parseRequest.Uri)
	if err != nil {
		var parseErr *invoices.ParseError
		var validationErr *invoices.ValidationError
		if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) invoiceShowHandler(c echo.Context) error {
	invoice, err := httpSvc.api.GetInvoice(c.Request().Context(), c.Param("key"))
	if err != nil {
		if invoices.IsNotFoundError(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Invoice not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, invoice)
}

func (httpSvc *HttpService) payHandler(c echo.Context) error {
	var payRequest api.PayRequest
	if err := c.Bind(&payRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.Pay(c.Request().Context(), c.Param("key"), payRequest.AmountMsat)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) createRequestHandler(c echo.Context) error {
	var createRequestRequest api.CreateRequestRequest
	if err := c.Bind(&createRequestRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.CreateRequest(c.Request().Context(), &createRequestRequest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to create payment request: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) requestShowHandler(c echo.Context) error {
	request, err := httpSvc.api.GetRequest(c.Request().Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Payment request not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, request)
}

func (httpSvc *HttpService) listTransactionsHandler(c echo.Context) error {
	limit := 20
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if parsedLimit, err := strconv.Atoi(limitParam); err == nil {
			limit = parsedLimit
		}
	}

	transactions, err := httpSvc.api.ListTransactions(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, transactions)
}

func (httpSvc *HttpService) finalizerShowHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetFinalizer(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) finalizerRetryHandler(c echo.Context) error {
	err := httpSvc.api.RetryFinalizer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Message: fmt.Sprintf("Failed to retry: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) finalizerCancelHandler(c echo.Context) error {
	released := httpSvc.api.CancelFinalizer(c.Param("id"))
	if !released {
		// a pending signature keeps the finalizer alive
		return c.NoContent(http.StatusAccepted)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) otpStatusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, httpSvc.api.GetOtpStatus())
}

func (httpSvc *HttpService) otpSubmitHandler(c echo.Context) error {
	var otpRequest api.OtpRequest
	if err := c.Bind(&otpRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.SubmitOtp(c.Request().Context(), otpRequest.Code)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) eventHandler(c echo.Context) error {
	var sendEventRequest struct {
		Event      string                 `json:"event"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := c.Bind(&sendEventRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	httpSvc.api.SendEvent(sendEventRequest.Event, sendEventRequest.Properties)

	return c.NoContent(http.StatusOK)
}
