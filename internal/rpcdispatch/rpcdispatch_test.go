package rpcdispatch

import "testing"

func TestMessageNameFromTypeURL(t *testing.T) {
	name, err := messageNameFromTypeURL("type.googleapis.com/acme.orders.PlaceOrder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "acme.orders.PlaceOrder" {
		t.Errorf("expected acme.orders.PlaceOrder, got %q", name)
	}
}

func TestMessageNameFromTypeURLNoSlash(t *testing.T) {
	name, err := messageNameFromTypeURL("acme.orders.PlaceOrder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "acme.orders.PlaceOrder" {
		t.Errorf("expected the bare name to pass through, got %q", name)
	}
}

func TestMessageNameFromTypeURLEmpty(t *testing.T) {
	_, err := messageNameFromTypeURL("")
	if err == nil {
		t.Errorf("expected an error for an empty type URL")
	}
}

func TestUnsupportedMessageError(t *testing.T) {
	err := &UnsupportedMessageError{TypeURL: "type.googleapis.com/unknown.Thing"}
	if err.Error() == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestProtoPredicateMatchesOwnKey(t *testing.T) {
	p := ProtoPredicate("acme.orders.PlaceOrder")
	if !p.Matches(protoKey("acme.orders.PlaceOrder")) {
		t.Errorf("expected ProtoPredicate to match its own protoKey value")
	}
	if p.Matches(protoKey("acme.orders.CancelOrder")) {
		t.Errorf("expected ProtoPredicate not to match a different key")
	}
}
