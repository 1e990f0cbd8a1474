package validate

import (
	"fmt"
	"regexp"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Username must be lowercase letters, digits, underscore, 1-30 chars.
var usernameRx = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)

// nameRx allows ASCII letters, digits, space, hyphen and underscore.
var nameRx = regexp.MustCompile(`^[A-Za-z0-9 _\-]+$`)

func Username(v string) error {
	if v == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRx.MatchString(v) {
		return fmt.Errorf("username must match %s", usernameRx.String())
	}
	return nil
}

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

// Name validates display names for organizations, services and plans:
// 1-100 bytes of letters, digits, space, hyphen, underscore.
func Name(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(v) > 100 {
		return fmt.Errorf("%s exceeds 100 characters", field)
	}
	if !nameRx.MatchString(v) {
		return fmt.Errorf("%s contains invalid characters; allowed letters, digits, space, hyphen, underscore", field)
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateUser validates input for registering a new account.
func CreateUser(username, email string) error {
	if err := Username(username); err != nil {
		return err
	}
	return Email(email)
}

// CreateOrganization validates input for registering a tenant.
func CreateOrganization(name string, webhookURL *string) error {
	if err := Name("name", name); err != nil {
		return err
	}
	return MaxLen("webhookUrl", webhookURL, 500)
}
