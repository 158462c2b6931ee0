package order

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

func setupApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	s := NewService(NewInMemoryRepository(), menuPrices(), zap.NewNop())
	a := fiber.New()
	a.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-Customer-ID"); v != "" {
			claims := jwt.MapClaims{"sub": v}
			if c.Get("X-Admin") == "1" {
				claims["role"] = "admin"
			}
			c.Locals("user", &jwt.Token{Claims: claims})
		}
		return c.Next()
	})
	NewHandler(s).RegisterProtectedRoutes(a)
	return a, s
}

func TestCustomerOrderRoutes(t *testing.T) {
	a, s := setupApp(t)
	ctx := context.Background()
	mine, _ := s.Create(ctx, NewOrder{CustomerID: "tg-42", Items: map[string]int{"latte": 3}})
	theirs, _ := s.Create(ctx, NewOrder{CustomerID: "tg-7", Items: map[string]int{"espresso": 1}})

	res, _ := a.Test(httptest.NewRequest("GET", "/api/v1/orders", nil))
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("X-Customer-ID", "tg-42")
	res, err := a.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var orders []Order
	json.NewDecoder(res.Body).Decode(&orders)
	if len(orders) != 1 || orders[0].ID != mine.ID || orders[0].TotalAmount.String() != "14.25" {
		t.Fatalf("unexpected orders %+v", orders)
	}

	req = httptest.NewRequest("GET", "/api/v1/orders/"+strings.ToLower(mine.ID), nil)
	req.Header.Set("X-Customer-ID", "tg-42")
	res, _ = a.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for own order, got %d", res.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/orders/"+theirs.ID, nil)
	req.Header.Set("X-Customer-ID", "tg-42")
	res, _ = a.Test(req)
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for another customer's order, got %d", res.StatusCode)
	}
}

func TestAdminOrderRoutes(t *testing.T) {
	a, s := setupApp(t)
	ord, _ := s.Create(context.Background(), NewOrder{CustomerID: "tg-42", Items: map[string]int{"latte": 1}})

	// customers cannot reach the admin board
	req := httptest.NewRequest("GET", "/api/v1/admin/orders", nil)
	req.Header.Set("X-Customer-ID", "tg-42")
	res, _ := a.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/admin/orders?status=pending", nil)
	req.Header.Set("X-Customer-ID", "admin")
	req.Header.Set("X-Admin", "1")
	res, _ = a.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var orders []Order
	json.NewDecoder(res.Body).Decode(&orders)
	if len(orders) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(orders))
	}

	patch := func(body string) int {
		req := httptest.NewRequest("PATCH", "/api/v1/admin/orders/"+ord.ID+"/status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Customer-ID", "admin")
		req.Header.Set("X-Admin", "1")
		res, err := a.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return res.StatusCode
	}
	if code := patch(`{"status":"Shipped"}`); code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", code)
	}
	if code := patch(`{"status":"Preparing"}`); code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	got, _ := s.Get(context.Background(), ord.ID)
	if got.Status != StatusPreparing {
		t.Fatalf("status not updated: %s", got.Status)
	}

	req = httptest.NewRequest("PATCH", "/api/v1/admin/orders/NOPE0000/status", strings.NewReader(`{"status":"Ready"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Customer-ID", "admin")
	req.Header.Set("X-Admin", "1")
	res, _ = a.Test(req)
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}
