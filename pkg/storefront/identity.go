package storefront

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractIdentity parses the host init data (a URL-encoded query string whose
// "user" field is a JSON object) into a UserIdentity.
//
// A missing "user" field is read as an empty object, which then fails on the
// required id. Malformed JSON is reported, never defaulted.
func ExtractIdentity(rawInitData string) (UserIdentity, error) {
	trimmed := strings.TrimSpace(rawInitData)
	if trimmed == "" {
		return UserIdentity{}, fmt.Errorf("%w: init data is empty", ErrNoIdentity)
	}
	// Malformed sibling fields are skipped; only the user field matters.
	values, parseErr := url.ParseQuery(trimmed)
	userJSON := emptyUserJSON
	if values.Has(initDataUserField) {
		userJSON = values.Get(initDataUserField)
	} else if parseErr != nil {
		return UserIdentity{}, fmt.Errorf("%w: parse init data: %w", ErrNoIdentity, parseErr)
	}
	if !gjson.Valid(userJSON) {
		return UserIdentity{}, fmt.Errorf("%w: user payload is not valid json", ErrNoIdentity)
	}
	user := gjson.Parse(userJSON)
	if !user.IsObject() {
		return UserIdentity{}, fmt.Errorf("%w: user payload is not an object", ErrNoIdentity)
	}
	idField := user.Get("id")
	if !idField.Exists() || idField.Type == gjson.Null {
		return UserIdentity{}, fmt.Errorf("%w: user id is missing", ErrNoIdentity)
	}
	if idField.Type != gjson.Number {
		return UserIdentity{}, fmt.Errorf("%w: user id must be a number", ErrNoIdentity)
	}
	id, err := strconv.ParseInt(idField.Raw, 10, 64)
	if err != nil {
		return UserIdentity{}, fmt.Errorf("%w: user id must be an integer: %w", ErrNoIdentity, err)
	}
	return UserIdentity{
		ID:        UserID(id),
		Username:  optionalString(user.Get("username")),
		FirstName: optionalString(user.Get("first_name")),
		LastName:  optionalString(user.Get("last_name")),
	}, nil
}

func optionalString(field gjson.Result) string {
	if field.Type != gjson.String {
		return ""
	}
	return field.String()
}
