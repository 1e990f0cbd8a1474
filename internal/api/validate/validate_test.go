package validate

import "testing"

func TestUsername(t *testing.T) {
	valid := []string{"alice", "bob_42", "x"}
	for _, v := range valid {
		if err := Username(v); err != nil {
			t.Errorf("Username(%q) unexpected error: %v", v, err)
		}
	}
	invalid := []string{"", "Alice", "bob smith", "a@b", "this_username_is_way_too_long_for_us"}
	for _, v := range invalid {
		if err := Username(v); err == nil {
			t.Errorf("Username(%q) expected error", v)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("alice@example.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, v := range []string{"", "no-at-sign", "a@b", "spaces in@example.com"} {
		if err := Email(v); err == nil {
			t.Errorf("Email(%q) expected error", v)
		}
	}
}

func TestName(t *testing.T) {
	if err := Name("name", "Acme Corp-2"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Name("name", ""); err == nil {
		t.Error("empty name should fail")
	}
	if err := Name("name", "bad/chars"); err == nil {
		t.Error("slash should fail")
	}
}

func TestCreateOrganization(t *testing.T) {
	if err := CreateOrganization("Acme", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	url := "https://" + string(long)
	if err := CreateOrganization("Acme", &url); err == nil {
		t.Error("oversized webhook URL should fail")
	}
}
