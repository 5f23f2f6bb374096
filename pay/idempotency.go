package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"fabritrack/middleware"
	"fabritrack/models"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Idempotency replays cached responses for mutating payment endpoints
// when the client presents an Idempotency-Key header.
type Idempotency struct {
	Coll *mongo.Collection
}

// EnsureIndexes creates the unique key and TTL indexes the record
// collection relies on.
func (i *Idempotency) EnsureIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	_, err := i.Coll.Indexes().CreateMany(ctx, idxs)
	return err
}

func computeRequestHash(r *http.Request, bodyBytes []byte, userEmail string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userEmail + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// captureResponseWriter wraps http.ResponseWriter to capture status and body.
type captureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func newCaptureResponseWriter(w http.ResponseWriter) *captureResponseWriter {
	return &captureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *captureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *captureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *captureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

// helper to detect duplicate key errors from Mongo insert
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// Middleware behavior:
// - no header: pass-through.
// - first sight of a key: insert a placeholder record, run the
//   handler, store the captured response.
// - duplicate key with a different request hash: 409.
// - duplicate key with a cached response: replay it.
// - duplicate key still in flight: run the handler, which is
//   idempotent at the store level anyway.
func (i *Idempotency) Middleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userEmail := middleware.EmailFromRequest(r)

		// Limit body size to 1 MB to prevent memory issues
		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := computeRequestHash(r, bodyBytes, userEmail)
		now := time.Now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserEmail:   userEmail,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(24 * time.Hour),
		}

		ctx := r.Context()
		_, err = i.Coll.InsertOne(ctx, rec)
		if err == nil {
			crw := newCaptureResponseWriter(w)
			next(crw, r, ps)

			var parsed interface{}
			if err := json.Unmarshal(crw.buf.Bytes(), &parsed); err != nil {
				parsed = crw.buf.String()
			}

			_, _ = i.Coll.UpdateOne(ctx,
				bson.M{"key": key},
				bson.M{"$set": bson.M{"response": map[string]interface{}{
					"status": crw.statusCode,
					"body":   parsed,
				}}},
			)
			return
		}

		if !isDuplicateKeyError(err) {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		var existing models.IdempotencyRecord
		if err := i.Coll.FindOne(ctx, bson.M{"key": key}).Decode(&existing); err != nil {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		if existing.RequestHash != reqHash {
			http.Error(w, "idempotency-key conflict", http.StatusConflict)
			return
		}

		if existing.Response != nil {
			status := http.StatusOK
			// BSON round-trips the status as a numeric type that
			// depends on the driver.
			switch v := existing.Response["status"].(type) {
			case int32:
				status = int(v)
			case int64:
				status = int(v)
			case float64:
				status = int(v)
			}
			utils.RespondWithJSON(w, status, existing.Response["body"])
			return
		}

		// In-flight request, let handler run
		next(w, r, ps)
	}
}
