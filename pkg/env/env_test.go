package env

import "testing"

func TestString(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_VALUE", "  console ")
	if got := String("STOREFRONT_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	t.Setenv("STOREFRONT_TEST_VALUE", " ")
	if got := String("STOREFRONT_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_FLAG", "true")
	if !Bool("STOREFRONT_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("STOREFRONT_TEST_FLAG", "maybe")
	if Bool("STOREFRONT_TEST_FLAG", false) {
		t.Fatal("unparseable value should fall back")
	}
}
