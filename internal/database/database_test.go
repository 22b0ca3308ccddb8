package database

import (
	"context"
	"testing"
	"time"
)

func TestConnect_InvalidDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := Connect(ctx, "host=localhost port=not-a-port")
	if err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
