package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/cafe-order-backend/internal/config"
	"github.com/wichananm65/cafe-order-backend/internal/order"
)

func fileConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		OrderStore: "file",
		OrdersFile: filepath.Join(t.TempDir(), "orders.json"),
		JWTSecret:  "test-secret",
	}
}

func TestOrderCommands(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()

	svc, closeFn, err := openOrders(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	ord, err := svc.Create(ctx, order.NewOrder{CustomerID: "tg-42", DisplayName: "Ada", Items: map[string]int{"latte": 3}})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(ctx, cfg, []string{"list"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), ord.ID) || !strings.Contains(out.String(), "14.25") {
		t.Fatalf("unexpected list output:\n%s", out.String())
	}

	out.Reset()
	if err := run(ctx, cfg, []string{"status", strings.ToLower(ord.ID), "ready"}, &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != ord.ID+" is now Ready\n" {
		t.Fatalf("unexpected status output %q", got)
	}

	out.Reset()
	if err := run(ctx, cfg, []string{"list", "--status", "pending", "--json"}, &out); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Fatalf("expected no pending orders, got %s", out.String())
	}

	out.Reset()
	if err := run(ctx, cfg, []string{"get", ord.ID}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"status": "Ready"`) {
		t.Fatalf("unexpected get output:\n%s", out.String())
	}

	if err := run(ctx, cfg, []string{"status", ord.ID, "Shipped"}, &out); !errors.Is(err, order.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := run(ctx, cfg, []string{"get", "NOPE0000"}, &out); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	cfg := fileConfig(t)
	var out bytes.Buffer
	for _, args := range [][]string{nil, {"frobnicate"}, {"get"}, {"status", "A1B2C3D4"}, {"token"}} {
		if err := run(context.Background(), cfg, args, &out); !errors.Is(err, errUsage) {
			t.Errorf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestTokenAndHash(t *testing.T) {
	cfg := fileConfig(t)
	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"token", "tg-42", "--role", "admin"}, &out); err != nil {
		t.Fatal(err)
	}
	tok, err := jwt.Parse(strings.TrimSpace(out.String()), func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != "tg-42" || claims["role"] != "admin" {
		t.Fatalf("unexpected claims %v", claims)
	}

	out.Reset()
	if err := run(context.Background(), cfg, []string{"hash-password", "s3cret"}, &out); err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out.String())), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not match: %v", err)
	}
}
