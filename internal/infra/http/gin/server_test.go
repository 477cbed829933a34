package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"hotelres/internal/app/bootstrap"
	"hotelres/internal/app/dto"
	"hotelres/internal/infra/obs"
	"hotelres/internal/infra/storage/memory"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	fx := bootstrap.Fixtures{
		Rooms: []bootstrap.RoomFixture{{ID: "101", Number: "101", NightlyRate: "100", Capacity: 2}},
		Promotions: []bootstrap.PromotionFixture{
			{Code: "WELCOME10", Kind: "PERCENTAGE", Value: "10"},
			{Code: "FLAT40", Kind: "FIXED_AMOUNT", Value: "40", MinimumAmount: "200"},
		},
	}
	if err := bootstrap.LoadFixtures(context.Background(), store, fx, now, nil); err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	app := bootstrap.New(bootstrap.Deps{
		UoW:           store,
		Outbox:        store.Outbox(),
		Idempotency:   memory.NewIdempotencyStore(0),
		Cache:         memory.NewCache(),
		CacheTTL:      time.Second,
		TxMaxAttempts: 3,
		Clock:         func() time.Time { return now },
	})
	metrics := obs.NewMetrics("test", nil)
	return NewRouter(obs.Middleware{Metrics: metrics}, obs.HealthHandlers{}, Handlers{
		Reservations: ReservationHandler{Commands: app.Commands, Queries: app.Queries},
		Availability: AvailabilityHandler{Queries: app.Queries},
		Promotions:   PromotionHandler{Commands: app.Commands, Queries: app.Queries},
		Metrics:      metrics.Handler(),
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func booking(in, out, customer string) map[string]any {
	return map[string]any{
		"room_id":       "101",
		"customer_id":   customer,
		"contact_email": customer + "@example.com",
		"check_in":      in,
		"check_out":     out,
		"guests":        2,
	}
}

func TestReservationFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/reservations", booking("2026-05-10", "2026-05-13", "alice"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	created := decode[dto.Reservation](t, rec)
	if created.Total != "336.00" || created.State != "CONFIRMED" {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/reservations", booking("2026-05-12", "2026-05-14", "bob"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/rooms/101/availability?check_in=2026-05-13&check_out=2026-05-15", nil)
	if rec.Code != http.StatusOK || !decode[dto.Availability](t, rec).Available {
		t.Fatalf("availability = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/reservations/by-reference/"+created.Reference, nil)
	if rec.Code != http.StatusOK || decode[dto.Reservation](t, rec).ID != created.ID {
		t.Fatalf("by reference = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/reservations/"+created.ID+"/promo", map[string]string{"code": "WELCOME10"})
	if rec.Code != http.StatusOK || decode[dto.Reservation](t, rec).Total != "302.40" {
		t.Fatalf("apply promo = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, "/api/v1/reservations/"+created.ID+"/promo", map[string]string{"code": "FLAT40"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second promo = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/reservations/"+created.ID+"/qr", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("qr = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, r, http.MethodPost, "/api/v1/reservations/"+created.ID+"/cancel", nil)
	if rec.Code != http.StatusOK || decode[dto.Reservation](t, rec).State != "CANCELLED" {
		t.Fatalf("cancel = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, "/api/v1/reservations/"+created.ID+"/transitions", map[string]string{"target": "CHECKED_IN"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("transition after cancel = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/reservations?customer_id=alice&status=cancelled", nil)
	if rec.Code != http.StatusOK || decode[dto.ReservationCollection](t, rec).Total != 1 {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}
}

func TestIdempotencyKeyReplaysCreate(t *testing.T) {
	r := newTestRouter(t)
	first := do(t, r, http.MethodPost, "/api/v1/reservations", booking("2026-05-10", "2026-05-11", "alice"), "Idempotency-Key", "abc")
	second := do(t, r, http.MethodPost, "/api/v1/reservations", booking("2026-05-10", "2026-05-11", "alice"), "Idempotency-Key", "abc")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("codes = %d, %d: %s", first.Code, second.Code, second.Body.String())
	}
	if decode[dto.Reservation](t, first).ID != decode[dto.Reservation](t, second).ID {
		t.Fatal("replay created a second reservation")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad date", http.MethodPost, "/api/v1/reservations", booking("10/05/2026", "2026-05-13", "alice"), http.StatusBadRequest},
		{"missing customer", http.MethodPost, "/api/v1/reservations", booking("2026-05-10", "2026-05-13", ""), http.StatusBadRequest},
		{"unknown room", http.MethodGet, "/api/v1/rooms/999/availability?check_in=2026-05-10&check_out=2026-05-11", nil, http.StatusNotFound},
		{"missing dates", http.MethodGet, "/api/v1/rooms/101/availability", nil, http.StatusBadRequest},
		{"inverted range", http.MethodPost, "/api/v1/reservations", booking("2026-05-13", "2026-05-10", "alice"), http.StatusUnprocessableEntity},
		{"past stay", http.MethodPost, "/api/v1/reservations", booking("2026-04-01", "2026-04-03", "alice"), http.StatusUnprocessableEntity},
		{"unknown reservation", http.MethodGet, "/api/v1/reservations/nope", nil, http.StatusNotFound},
		{"unknown state filter", http.MethodGet, "/api/v1/reservations?status=asleep", nil, http.StatusBadRequest},
		{"unknown promo stats", http.MethodGet, "/api/v1/promotions/NOPE/stats", nil, http.StatusNotFound},
		{"set active without flag", http.MethodPatch, "/api/v1/promotions/FLAT40", map[string]any{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestPromoValidationOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/promotions/validate", map[string]string{"code": "flat40", "amount": "150", "customer_id": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("validate = %d %s", rec.Code, rec.Body.String())
	}
	if v := decode[dto.PromoValidation](t, rec); v.Valid || v.Reason != "below-minimum" {
		t.Fatalf("validation = %+v", v)
	}
	rec = do(t, r, http.MethodPost, "/api/v1/promotions/validate", map[string]string{"code": "FLAT40", "amount": "250", "customer_id": "alice"})
	if v := decode[dto.PromoValidation](t, rec); !v.Valid || v.FinalAmount != "210.00" {
		t.Fatalf("validation = %+v", v)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/reservations", map[string]any{
		"room_id": "101", "customer_id": "alice", "check_in": "2026-05-10", "check_out": "2026-05-11", "promo_code": "FLAT40",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create with ineligible code = %d %s", rec.Code, rec.Body.String())
	}
	if body := decode[map[string]string](t, rec); body["reason"] != "below-minimum" {
		t.Fatalf("body = %v", body)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/promotions/active", nil)
	if rec.Code != http.StatusOK || len(decode[dto.PromotionCollection](t, rec).Items) != 2 {
		t.Fatalf("active = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	_ = do(t, r, http.MethodGet, "/livez", nil)
	rec := do(t, r, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("hotel_test_http_requests_total")) {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
