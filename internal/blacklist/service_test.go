package blacklist

import (
	"context"
	"testing"

	"github.com/angelmondragon/estore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
)

func TestIsBlacklistedMatchesNormalizedNumber(t *testing.T) {
	conn := dbtest.Open(t)
	if err := conn.Create(&models.BlacklistedPhone{PhoneNumber: "+213555123456"}).Error; err != nil {
		t.Fatalf("seed blacklist: %v", err)
	}
	svc := NewService(conn)

	cases := map[string]bool{
		"+213555123456":  true,
		"0555 12 34 56":  true,
		"00213555123456": true,
		"0555000000":     false,
	}
	for number, want := range cases {
		got, err := svc.IsBlacklisted(context.Background(), number)
		if err != nil {
			t.Fatalf("IsBlacklisted(%q): %v", number, err)
		}
		if got != want {
			t.Fatalf("IsBlacklisted(%q) = %v, want %v", number, got, want)
		}
	}
}

func TestGuardReturnsBlacklistedError(t *testing.T) {
	conn := dbtest.Open(t)
	if err := conn.Create(&models.BlacklistedPhone{PhoneNumber: "+213661000000"}).Error; err != nil {
		t.Fatalf("seed blacklist: %v", err)
	}
	svc := NewService(conn)

	err := svc.Guard(context.Background(), nil, "0661000000")
	if !pkgerrors.IsCode(err, pkgerrors.CodeBlacklisted) {
		t.Fatalf("expected blacklisted error, got %v", err)
	}
	if err := svc.Guard(context.Background(), nil, "0770000000"); err != nil {
		t.Fatalf("unexpected error for clean number: %v", err)
	}
}
