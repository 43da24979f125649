package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/idempotency"
	"ledgercore/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// bodyRecorder copies the response body while it is written.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a POST or PUT that repeats an
// X-Idempotency-Key. 4xx outcomes are stored and replayed; 5xx outcomes
// release the key so the client may retry.
// Must be registered before ErrorHandler so the rendered error is captured;
// its own rejections are rendered directly.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			abortWithError(c, apperror.NewValidation("unreadable request body").WithCause(err))
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			abortWithError(c, appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.Acquire(ctx, key, appctx.GetActorID(ctx), operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			abortWithError(c, err)
			return
		}
		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := c.Writer.Status()
		var storeErr error
		switch {
		case status >= http.StatusInternalServerError:
			storeErr = store.Release(ctx, key)
		case status >= http.StatusBadRequest:
			storeErr = store.Complete(ctx, key, idempotency.StatusFailed, status, c.Writer.Header().Get("Content-Type"), rec.body.Bytes())
		default:
			storeErr = store.Complete(ctx, key, idempotency.StatusSuccess, status, c.Writer.Header().Get("Content-Type"), rec.body.Bytes())
		}
		if storeErr != nil {
			logger.Error(ctx, "idempotency key not recorded", "key", key, "error", storeErr)
		}
	}
}
