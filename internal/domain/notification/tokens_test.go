package notification_test

import (
	"strings"
	"testing"

	"notigate/internal/domain/notification"
)

func TestTokenRegistryRegister(t *testing.T) {
	t.Parallel()

	registry := notification.NewTokenRegistry()
	token := "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"

	ack := registry.Register("user-1", token)
	if ack.UserID != "user-1" {
		t.Errorf("ack user = %q, want user-1", ack.UserID)
	}
	if want := token[:20] + "..."; ack.Token != want {
		t.Errorf("ack token = %q, want %q", ack.Token, want)
	}
	if ack.Token == token {
		t.Error("ack must never echo the full token")
	}

	got, ok := registry.Lookup("user-1")
	if !ok || got != token {
		t.Fatalf("Lookup() = %q, %v; want the full token", got, ok)
	}
}

func TestTokenRegistryShortTokenNotTruncated(t *testing.T) {
	t.Parallel()

	registry := notification.NewTokenRegistry()

	ack := registry.Register("user-1", "short-token")
	if ack.Token != "short-token" {
		t.Errorf("ack token = %q, want unmodified short token", ack.Token)
	}
	if strings.HasSuffix(ack.Token, "...") {
		t.Error("short tokens must not carry an ellipsis")
	}
}

func TestTokenRegistryOverwrite(t *testing.T) {
	t.Parallel()

	registry := notification.NewTokenRegistry()
	registry.Register("user-1", "old-token")
	registry.Register("user-1", "new-token")

	got, ok := registry.Lookup("user-1")
	if !ok || got != "new-token" {
		t.Fatalf("Lookup() = %q, %v; want the latest registration", got, ok)
	}
}

func TestTokenRegistryLookupMiss(t *testing.T) {
	t.Parallel()

	registry := notification.NewTokenRegistry()

	if got, ok := registry.Lookup("nobody"); ok || got != "" {
		t.Fatalf("Lookup() = %q, %v; want a miss", got, ok)
	}
}
