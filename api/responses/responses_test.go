package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusCreated {
		t.Fatalf("expected status 201 but got %d", got)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "items"}), http.StatusBadRequest, "bad input"},
		{"stock", pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product"), http.StatusConflict, "insufficient stock for product"},
		{"state", pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending"), http.StatusUnprocessableEntity, "order is not pending"},
		{"signature", pkgerrors.New(pkgerrors.CodeInvalidSignature, "hmac mismatch"), http.StatusBadRequest, "invalid webhook signature"},
		{"dependency", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "load order"), http.StatusServiceUnavailable, "dependency unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), logger.Nop(), w, tc.err)

			if w.Code != tc.status {
				t.Fatalf("expected status %d but got %d", tc.status, w.Code)
			}
			var body types.ErrorEnvelope
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error envelope: %v", err)
			}
			if body.Error.Message != tc.message {
				t.Fatalf("unexpected message %q", body.Error.Message)
			}
		})
	}
}

func TestWriteErrorKeepsDetailsWhenAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "items"})
	WriteError(context.Background(), nil, w, err)

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) || body.Error.Details == nil {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message == "boom" || body.Error.Details != nil {
		t.Fatalf("internal cause leaked: %+v", body.Error)
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	logg := logger.Nop()
	ctx := logg.WithRequestID(context.Background(), "req-42")
	w := httptest.NewRecorder()
	WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.RequestID != "req-42" {
		t.Fatalf("expected request id echoed, got %+v", body.Error)
	}
}

func TestWriteErrorAdvisesRetryOnDependencyFailure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "check idempotency"))
	if w.Header().Get("Retry-After") != "5" {
		t.Fatalf("expected Retry-After on 503, got %q", w.Header().Get("Retry-After"))
	}

	w = httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("nil pointer"))
	if w.Header().Get("Retry-After") != "" {
		t.Fatalf("500s must not advertise Retry-After")
	}
}
