package main

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"solana-token-launchpad/internal/config"
)

func TestServiceConfig(t *testing.T) {
	sc := serviceConfig(&config.Config{AirdropRate: 30 * time.Second, AirdropBurst: 3, ConfirmTimeout: 5 * time.Second})
	if sc.AirdropRate != rate.Every(30*time.Second) {
		t.Errorf("AirdropRate = %v", sc.AirdropRate)
	}
	if sc.AirdropBurst != 3 || sc.ConfirmTimeout != 5*time.Second {
		t.Errorf("burst = %d, timeout = %v", sc.AirdropBurst, sc.ConfirmTimeout)
	}

	if got := serviceConfig(&config.Config{}).AirdropRate; got != rate.Inf {
		t.Errorf("zero rate = %v, want rate.Inf", got)
	}
}

func TestCreateStores_Memory(t *testing.T) {
	stores, cleanup, err := createStores(context.Background(), &config.Config{UseMemory: true})
	if err != nil {
		t.Fatalf("createStores: %v", err)
	}
	defer cleanup()

	if stores.launches == nil || stores.pins == nil || stores.buildEvents == nil {
		t.Error("memory stores not created")
	}
}

func TestRootCmd_RejectsIncompleteConfig(t *testing.T) {
	t.Setenv("LAUNCHPAD_PINATA_JWT", "")
	t.Setenv("PINATA_JWT", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--use-memory"})
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected validation error without pinata credentials")
	}
}
