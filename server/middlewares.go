package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Daskott/safecircle/colors"
	"github.com/Daskott/safecircle/server/models"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		defer func() {
			responseStatus := colors.Green(responseWriter.Status)
			if responseWriter.Status >= 400 {
				responseStatus = colors.Red(responseWriter.Status)
			}

			logg.Info(
				r.Method, " ",
				r.RequestURI, " ",
				responseStatus, " ",
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))), " ",
				colors.Blue(requestID))
		}()

		next.ServeHTTP(responseWriter, r.WithContext(context.WithValue(r.Context(), RequestContextKey("requestID"), requestID)))
	})
}

func initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded token to request context
		ctx := context.WithValue(r.Context(), RequestContextKey("decodedJWT"), decodeAndVerifyAuthHeader(r.Header.Get("Authorization")))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// protectedRouteMiddleware only lets through requests with a valid token for an existing user,
// & adds the user to the request context
func protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
		if decodedJWT.ErrorMsg != "" {
			writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		user, err := models.FindUserBy("id", decodedJWT.Claims.Subject)
		if isRecordNotFound(err) {
			writeResponse(w, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
			return
		}

		if err != nil {
			writeInternalError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), RequestContextKey("user"), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware limits the number of requests per client IP, using 'authLimiter'
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authLimiter != nil && !authLimiter.allow(clientIP(r)) {
			writeResponse(w, ResponsePayload{Errors: []string{"too many attempts, try again later"}}, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
