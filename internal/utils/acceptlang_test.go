package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("vi-VN", "en-US,en;q=0.9,vi;q=0.8", []string{"en", "vi", "ja"}, "en")
	if got != "vi" {
		t.Fatalf("want vi, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "en-US,en;q=0.9,ja;q=0.8", []string{"en", "vi", "ja"}, "en")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "ja;q=0.9,en;q=0.8", []string{"en", "vi", "ja"}, "en")
	if got != "ja" {
		t.Fatalf("want ja, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,es;q=0.9", []string{"en", "vi", "ja"}, "en")
	if got != "en" {
		t.Fatalf("want en fallback, got %s", got)
	}
}
